package models

import "github.com/shopspring/decimal"

// Address is the postal address shared by staff and clients.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
}

// Documents holds the identity and labour documents of a staff member.
type Documents struct {
	CPF         string `json:"cpf"`
	RG          string `json:"rg"`
	CNH         string `json:"cnh"`
	WorkCard    string `json:"workCard"`
	PIS         string `json:"pis"`
	VigilantReg string `json:"vigilantReg"`
}

// Staff is an employee together with the payroll rules used for projections.
type Staff struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email"`
	Salary       decimal.Decimal `json:"salary"`
	PaymentDay   int             `json:"paymentDay"`
	TakesAdvance bool            `json:"takesAdvance"`
	AdvanceValue decimal.Decimal `json:"advanceValue"`
	AdvanceDay   int             `json:"advanceDay"`
	IsActive     bool            `json:"isActive"`
	Address      Address         `json:"address"`
	Documents    Documents       `json:"documents"`
}

// EntityID implements the store entity contract.
func (s Staff) EntityID() string { return s.ID }

// WithID returns a copy carrying id.
func (s Staff) WithID(id string) Staff {
	s.ID = id
	return s
}

// SalaryRemainder is what is left to pay on payment day once the advance went out.
func (s Staff) SalaryRemainder() decimal.Decimal {
	if s.TakesAdvance {
		return s.Salary.Sub(s.AdvanceValue)
	}
	return s.Salary
}

// Client is a contract customer whose premises host shifts.
type Client struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ContactName      string          `json:"contactName"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	ContractValue    decimal.Decimal `json:"contractValue"`
	PaymentDay       int             `json:"paymentDay"`
	IsActive         bool            `json:"isActive"`
	AssignedStaffIDs []string        `json:"assignedStaffIds"`
	Stations         []string        `json:"stations"`
	Address          Address         `json:"address"`
}

// EntityID implements the store entity contract.
func (c Client) EntityID() string { return c.ID }

// WithID returns a copy carrying id.
func (c Client) WithID(id string) Client {
	c.ID = id
	return c
}

// Supplier is a vendor; recurring suppliers feed projected expenses.
type Supplier struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Phone         string          `json:"phone"`
	IsRecurring   bool            `json:"isRecurring"`
	ContractValue decimal.Decimal `json:"contractValue"`
	PaymentDay    int             `json:"paymentDay"`
}

// EntityID implements the store entity contract.
func (s Supplier) EntityID() string { return s.ID }

// WithID returns a copy carrying id.
func (s Supplier) WithID(id string) Supplier {
	s.ID = id
	return s
}

// Projectable reports whether the supplier carries a complete recurring contract.
func (s Supplier) Projectable() bool {
	return s.IsRecurring && s.ContractValue.IsPositive() && s.PaymentDay > 0
}
