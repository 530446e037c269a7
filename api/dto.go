/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the engine's domain
  model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.
*/
package api

import (
	"github.com/AppfinityLabs/chitwise-new-sub001/chitfund"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// GroupDTO represents a chit group in API responses.
type GroupDTO struct {
	ID                 string  `json:"id"`
	OrgID              string  `json:"org_id"`
	Name               string  `json:"name"`
	Frequency          string  `json:"frequency"`
	ContributionAmount string  `json:"contribution_amount"`
	TotalUnits         string  `json:"total_units"`
	TotalPeriods       int     `json:"total_periods"`
	StartDate          string  `json:"start_date"`
	EndDate            *string `json:"end_date,omitempty"`
	CurrentPeriod      int     `json:"current_period"`
	Status             string  `json:"status"`
}

// CreateGroupRequest is the request to create a group.
type CreateGroupRequest struct {
	Name               string `json:"name"`
	Frequency          string `json:"frequency"`
	ContributionAmount string `json:"contribution_amount"`
	TotalUnits         string `json:"total_units"`
	TotalPeriods       int    `json:"total_periods"`
	StartDate          string `json:"start_date"`
}

// MemberDTO represents a subscription in API responses.
type MemberDTO struct {
	ID                string `json:"id"`
	MemberID          string `json:"member_id"`
	GroupID           string `json:"group_id"`
	Units             string `json:"units"`
	CollectionPattern string `json:"collection_pattern"`
	CollectionFactor  string `json:"collection_factor"`
	TotalDue          string `json:"total_due"`
	TotalCollected    string `json:"total_collected"`
	PendingAmount     string `json:"pending_amount"`
	Status            string `json:"status"`
	JoinedAt          string `json:"joined_at"`
}

// JoinGroupRequest is the request to subscribe a member to a group.
type JoinGroupRequest struct {
	MemberID          string `json:"member_id"`
	Units             string `json:"units"`
	CollectionPattern string `json:"collection_pattern,omitempty"`
}

// RecordCollectionRequest is the request to record a payment.
type RecordCollectionRequest struct {
	BasePeriod  int    `json:"base_period,omitempty"`
	Sequence    int    `json:"sequence,omitempty"`
	AmountDue   string `json:"amount_due"`
	AmountPaid  string `json:"amount_paid"`
	PaymentMode string `json:"payment_mode,omitempty"`
	Status      string `json:"status,omitempty"`
}

// CollectionDTO represents a ledger record in API responses.
type CollectionDTO struct {
	ID            string `json:"id"`
	GroupMemberID string `json:"group_member_id"`
	GroupID       string `json:"group_id"`
	MemberID      string `json:"member_id"`
	BasePeriod    int    `json:"base_period"`
	Sequence      int    `json:"sequence"`
	PeriodDate    string `json:"period_date"`
	AmountDue     string `json:"amount_due"`
	AmountPaid    string `json:"amount_paid"`
	PaymentMode   string `json:"payment_mode,omitempty"`
	CollectedAt   string `json:"collected_at"`
	Status        string `json:"status"`
}

// StatementDTO is the per-read dues standing of a subscription.
type StatementDTO struct {
	SubscriptionID string `json:"subscription_id"`
	GroupID        string `json:"group_id"`
	AsOf           string `json:"as_of"`
	CurrentPeriod  int    `json:"current_period"`
	ExpectedDue    string `json:"expected_due"`
	TotalCollected string `json:"total_collected"`
	OverdueAmount  string `json:"overdue_amount"`
	PaymentStatus  string `json:"payment_status"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toGroupDTO(g chitfund.ChitGroup) GroupDTO {
	dto := GroupDTO{
		ID:                 string(g.ID),
		OrgID:              string(g.OrgID),
		Name:               g.Name,
		Frequency:          string(g.Frequency),
		ContributionAmount: g.ContributionAmount.String(),
		TotalUnits:         g.TotalUnits.String(),
		TotalPeriods:       g.TotalPeriods,
		StartDate:          g.StartDate.String(),
		CurrentPeriod:      g.CurrentPeriod,
		Status:             string(g.Status),
	}
	if g.EndDate != nil {
		s := g.EndDate.String()
		dto.EndDate = &s
	}
	return dto
}

func toMemberDTO(m chitfund.GroupMember) MemberDTO {
	return MemberDTO{
		ID:                string(m.ID),
		MemberID:          string(m.MemberID),
		GroupID:           string(m.GroupID),
		Units:             m.Units.String(),
		CollectionPattern: string(m.CollectionPattern),
		CollectionFactor:  m.CollectionFactor.String(),
		TotalDue:          m.TotalDue.String(),
		TotalCollected:    m.TotalCollected.String(),
		PendingAmount:     m.PendingAmount.String(),
		Status:            string(m.Status),
		JoinedAt:          m.JoinedAt.String(),
	}
}

func toCollectionDTO(c chitfund.Collection) CollectionDTO {
	return CollectionDTO{
		ID:            string(c.ID),
		GroupMemberID: string(c.GroupMemberID),
		GroupID:       string(c.GroupID),
		MemberID:      string(c.MemberID),
		BasePeriod:    c.BasePeriod,
		Sequence:      c.Sequence,
		PeriodDate:    c.PeriodDate.String(),
		AmountDue:     c.AmountDue.String(),
		AmountPaid:    c.AmountPaid.String(),
		PaymentMode:   c.PaymentMode,
		CollectedAt:   c.CollectedAt.String(),
		Status:        string(c.Status),
	}
}

func toStatementDTO(st chitfund.DuesStatement) StatementDTO {
	return StatementDTO{
		SubscriptionID: string(st.SubscriptionID),
		GroupID:        string(st.GroupID),
		AsOf:           st.AsOf.String(),
		CurrentPeriod:  st.CurrentPeriod,
		ExpectedDue:    st.ExpectedDue.String(),
		TotalCollected: st.TotalCollected.String(),
		OverdueAmount:  st.OverdueAmount.String(),
		PaymentStatus:  string(st.PaymentStatus),
	}
}
