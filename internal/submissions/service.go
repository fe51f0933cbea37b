// Package submissions checks a visitor against the purchase records, logs the
// attempt and registers matching purchasers with the webinar provider.
package submissions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/everweb-bridge/backend/internal/everwebinar"
	"github.com/everweb-bridge/backend/internal/models"
	"github.com/everweb-bridge/backend/internal/retry"
	"github.com/everweb-bridge/backend/internal/sheets"
)

const (
	msgSubmitted  = "Form submitted successfully."
	msgRegistered = " Registered to EverWebinar."
	msgNotFound   = " Email not found in Payhip sheet. Not registered to EverWebinar."
)

// Registrar registers a person with the webinar provider in a single attempt.
type Registrar interface {
	Register(ctx context.Context, r everwebinar.Registrant) (json.RawMessage, error)
}

// SheetIDs names the two spreadsheets a submission touches.
type SheetIDs struct {
	Purchases string
	Audit     string
}

// Service runs the submission flow.
type Service struct {
	workbook  sheets.Workbook
	registrar Registrar
	ids       SheetIDs
	policy    retry.Policy
	logger    *zap.Logger
}

// NewService creates a submission service.
func NewService(workbook sheets.Workbook, registrar Registrar, ids SheetIDs, policy retry.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &Service{workbook: workbook, registrar: registrar, ids: ids, policy: policy, logger: logger}
}

// SplitName splits on the first run of whitespace. A single word yields an
// empty last name.
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	i := strings.IndexFunc(name, unicode.IsSpace)
	if i < 0 {
		return name, ""
	}
	return name[:i], strings.TrimSpace(name[i:])
}

// SameEmail compares two addresses ignoring case and surrounding whitespace.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Submit logs the submission to the audit sheet and, when the email is a
// known purchaser, registers it. Steps run in order with no rollback: the
// audit row stays even if registration fails afterwards.
func (s *Service) Submit(ctx context.Context, req models.RegistrationRequest) (*models.SubmissionResult, error) {
	firstName, lastName := SplitName(req.Name)
	s.logger.Info("form submission received",
		zap.String("email", req.Email),
		zap.String("selected_schedule", req.SelectedSchedule),
		zap.ByteString("schedule_id", req.ScheduleID),
	)

	auditSheet, err := s.workbook.Open(ctx, s.ids.Audit)
	if err != nil {
		return nil, fmt.Errorf("open audit sheet: %w", err)
	}
	purchaseSheet, err := s.workbook.Open(ctx, s.ids.Purchases)
	if err != nil {
		return nil, fmt.Errorf("open purchase sheet: %w", err)
	}

	records, err := sheets.ReadRows[models.PurchaseRecord](ctx, purchaseSheet)
	if err != nil {
		return nil, fmt.Errorf("read purchase records: %w", err)
	}
	s.logger.Debug("purchase records fetched", zap.Int("rows", len(records)))
	matched := s.isPurchaser(records, req.Email)

	audit := models.AuditRow{Name: req.Name, Email: req.Email, Schedule: req.SelectedSchedule}
	if err := sheets.AppendRow(ctx, auditSheet, audit); err != nil {
		return nil, fmt.Errorf("append audit row: %w", err)
	}

	result := &models.SubmissionResult{Message: msgSubmitted}
	if !matched {
		result.Message += msgNotFound
		s.logger.Info("email not in purchase records", zap.String("email", req.Email))
		return result, nil
	}

	registrant := everwebinar.Registrant{
		FirstName:  firstName,
		LastName:   lastName,
		Email:      req.Email,
		ScheduleID: req.ScheduleID,
	}
	resp, err := retry.Do(ctx, s.policy, func(ctx context.Context) (json.RawMessage, error) {
		return s.registrar.Register(ctx, registrant)
	})
	if err != nil {
		return nil, fmt.Errorf("register to everwebinar: %w", err)
	}
	result.Message += msgRegistered
	result.EverWebinarResponse = resp
	s.logger.Info("registered to everwebinar", zap.String("email", req.Email))
	return result, nil
}

func (s *Service) isPurchaser(records []models.PurchaseRecord, email string) bool {
	for _, rec := range records {
		if strings.TrimSpace(rec.Email) == "" {
			s.logger.Warn("purchase row without email",
				zap.String("first_name", rec.FirstName),
				zap.String("last_name", rec.LastName),
			)
			continue
		}
		if SameEmail(rec.Email, email) {
			return true
		}
	}
	return false
}
