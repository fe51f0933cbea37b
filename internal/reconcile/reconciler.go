// Package reconcile registers every audited submission whose email appears in
// the purchase records. It backfills registrations missed by the live flow.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/everweb-bridge/backend/internal/everwebinar"
	"github.com/everweb-bridge/backend/internal/models"
	"github.com/everweb-bridge/backend/internal/retry"
	"github.com/everweb-bridge/backend/internal/sheets"
	"github.com/everweb-bridge/backend/internal/submissions"
)

// Provider lists schedules and registers people in single attempts.
type Provider interface {
	ListSchedules(ctx context.Context) ([]models.ScheduleEntry, error)
	Register(ctx context.Context, r everwebinar.Registrant) (json.RawMessage, error)
}

// Summary counts the outcome of one run.
type Summary struct {
	AuditRows  int `json:"audit_rows"`
	Matched    int `json:"matched"`
	Registered int `json:"registered"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Reconciler walks the audit sheet and registers matching purchasers.
type Reconciler struct {
	workbook   sheets.Workbook
	provider   Provider
	ids        submissions.SheetIDs
	policy     retry.Policy
	listPolicy retry.Policy
	logger     *zap.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(workbook sheets.Workbook, provider Provider, ids submissions.SheetIDs, policy retry.Policy, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	listPolicy := policy.WithPermanent(func(err error) bool {
		return errors.Is(err, everwebinar.ErrMalformedResponse)
	})
	return &Reconciler{
		workbook:   workbook,
		provider:   provider,
		ids:        ids,
		policy:     policy,
		listPolicy: listPolicy,
		logger:     logger,
	}
}

// Run executes one pass. Sheet and listing failures abort the run; a failed
// registration is logged and counted.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	purchaseSheet, err := r.workbook.Open(ctx, r.ids.Purchases)
	if err != nil {
		return sum, fmt.Errorf("open purchase sheet: %w", err)
	}
	auditSheet, err := r.workbook.Open(ctx, r.ids.Audit)
	if err != nil {
		return sum, fmt.Errorf("open audit sheet: %w", err)
	}
	purchases, err := sheets.ReadRows[models.PurchaseRecord](ctx, purchaseSheet)
	if err != nil {
		return sum, fmt.Errorf("read purchase records: %w", err)
	}
	audits, err := sheets.ReadRows[models.AuditRow](ctx, auditSheet)
	if err != nil {
		return sum, fmt.Errorf("read audit rows: %w", err)
	}
	sum.AuditRows = len(audits)

	entries, err := retry.Do(ctx, r.listPolicy, r.provider.ListSchedules)
	if err != nil {
		return sum, fmt.Errorf("list schedules: %w", err)
	}
	byDate := make(map[string]json.RawMessage, len(entries))
	for _, e := range entries {
		if _, dup := byDate[e.Date]; !dup {
			byDate[e.Date] = e.ScheduleID
		}
	}

	for _, row := range audits {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		rec, ok := findPurchase(purchases, row.Email)
		if !ok {
			continue
		}
		sum.Matched++

		scheduleID, ok := byDate[strings.TrimSpace(row.Schedule)]
		if !ok {
			r.logger.Warn("schedule no longer offered", zap.String("email", row.Email), zap.String("schedule", row.Schedule))
			sum.Skipped++
			continue
		}

		registrant := everwebinar.Registrant{
			FirstName:  rec.FirstName,
			LastName:   rec.LastName,
			Email:      strings.TrimSpace(rec.Email),
			ScheduleID: scheduleID,
		}
		if registrant.FirstName == "" {
			registrant.FirstName, registrant.LastName = submissions.SplitName(row.Name)
		}
		_, err := retry.Do(ctx, r.policy, func(ctx context.Context) (json.RawMessage, error) {
			return r.provider.Register(ctx, registrant)
		})
		if err != nil {
			r.logger.Error("registration failed", zap.String("email", registrant.Email), zap.Error(err))
			sum.Failed++
			continue
		}
		r.logger.Info("user registered", zap.String("email", registrant.Email))
		sum.Registered++
	}

	r.logger.Info("reconcile completed",
		zap.Int("audit_rows", sum.AuditRows),
		zap.Int("matched", sum.Matched),
		zap.Int("registered", sum.Registered),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func findPurchase(records []models.PurchaseRecord, email string) (models.PurchaseRecord, bool) {
	if strings.TrimSpace(email) == "" {
		return models.PurchaseRecord{}, false
	}
	for _, rec := range records {
		if strings.TrimSpace(rec.Email) != "" && submissions.SameEmail(rec.Email, email) {
			return rec, true
		}
	}
	return models.PurchaseRecord{}, false
}
