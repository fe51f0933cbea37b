package models

// PurchaseRecord is a row of the Payhip purchase-record sheet.
type PurchaseRecord struct {
	Email     string `sheet:"Email"`
	FirstName string `sheet:"First Name"`
	LastName  string `sheet:"Last Name"`
}

// AuditRow is a row of the submissions audit sheet.
type AuditRow struct {
	Name     string `sheet:"Name"`
	Email    string `sheet:"Email"`
	Schedule string `sheet:"Schedule"`
}
