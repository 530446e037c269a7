/*
handlers.go - HTTP API handlers for the chit fund engine

PURPOSE:
  Exposes the dues engine via REST. Handles HTTP request/response, JSON
  serialization, and org scoping, and delegates all calculation to the
  chitfund package. The evaluation instant ("now") is taken from the wall
  clock exactly once per request, here at the boundary - the engine never
  reads ambient time.

ENDPOINTS:
  Groups:
    GET    /api/groups                     List caller org's groups
    POST   /api/groups                     Create group (admin)
    GET    /api/groups/{id}                Get group (refreshes cached period)
    GET    /api/groups/{id}/members        List subscriptions
    GET    /api/groups/{id}/statements     Dues statements for all members
    POST   /api/groups/{id}/members        Subscribe a member

  Subscriptions:
    GET    /api/subscriptions/{id}             Get subscription
    GET    /api/subscriptions/{id}/statement   Dues statement (per-read)
    GET    /api/subscriptions/{id}/collections Ledger records
    POST   /api/subscriptions/{id}/collections Record a payment

ERROR HANDLING:
  - 400: Validation errors, invalid input, invalid cadence
  - 403: Caller outside the group's organisation scope
  - 404: Unknown group/subscription
  - 409: Duplicate ledger slot (caller retries with next sequence)
  - 500: Internal errors

SEE ALSO:
  - dto.go:    request/response structures
  - auth.go:   caller identity and org scoping
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AppfinityLabs/chitwise-new-sub001/chitfund"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  chitfund.Store
	Engine *chitfund.Engine

	// Now supplies the evaluation instant; overridable in tests.
	Now func() chitfund.TimePoint
}

// NewHandler creates a handler over the given store.
func NewHandler(store chitfund.Store) *Handler {
	return &Handler{
		Store:  store,
		Engine: chitfund.NewEngine(store),
		Now:    func() chitfund.TimePoint { return chitfund.At(time.Now()) },
	}
}

// =============================================================================
// GROUP ENDPOINTS
// =============================================================================

// ListGroups returns the caller organisation's groups.
// GET /api/groups
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required", nil)
		return
	}

	groups, err := h.Store.GroupsByOrg(r.Context(), caller.OrgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list groups", err)
		return
	}

	dtos := make([]GroupDTO, 0, len(groups))
	for _, g := range groups {
		dtos = append(dtos, toGroupDTO(g))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGroup creates a group in the caller's organisation.
// POST /api/groups
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok || !caller.Admin {
		writeError(w, http.StatusForbidden, "Administrator role required", nil)
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	freq := chitfund.Frequency(req.Frequency)
	if !freq.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid frequency (use DAILY, WEEKLY or MONTHLY)", nil)
		return
	}
	if req.TotalPeriods < 1 {
		writeError(w, http.StatusBadRequest, "total_periods must be at least 1", nil)
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	contribution, err := decimal.NewFromString(req.ContributionAmount)
	if err != nil || contribution.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid contribution_amount", err)
		return
	}
	totalUnits, err := decimal.NewFromString(req.TotalUnits)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid total_units", err)
		return
	}

	group := chitfund.ChitGroup{
		ID:                 chitfund.GroupID(uuid.NewString()),
		OrgID:              caller.OrgID,
		Name:               req.Name,
		Frequency:          freq,
		ContributionAmount: contribution,
		TotalUnits:         totalUnits,
		TotalPeriods:       req.TotalPeriods,
		StartDate:          chitfund.At(start),
		CurrentPeriod:      1,
		Status:             chitfund.GroupActive,
		CreatedAt:          h.Now(),
	}

	if err := h.Store.PutGroup(r.Context(), group); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create group", err)
		return
	}

	slog.Info("group created", "group", group.ID, "org", group.OrgID, "frequency", group.Frequency)
	writeJSON(w, http.StatusCreated, toGroupDTO(group))
}

// GetGroup fetches a group, refreshing its cached current period.
// GET /api/groups/{id}
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, _, ok := h.scopedGroup(w, r, chitfund.GroupID(chi.URLParam(r, "id")))
	if !ok {
		return
	}

	// Lazy forward-only refresh of the cached period.
	period := chitfund.GroupPeriod(group, h.Now())
	if period > group.CurrentPeriod {
		stored, err := h.Store.AdvancePeriod(r.Context(), group.ID, period)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to refresh period", err)
			return
		}
		group.CurrentPeriod = stored
	}

	writeJSON(w, http.StatusOK, toGroupDTO(group))
}

// ListGroupMembers returns a group's subscriptions.
// GET /api/groups/{id}/members
func (h *Handler) ListGroupMembers(w http.ResponseWriter, r *http.Request) {
	group, _, ok := h.scopedGroup(w, r, chitfund.GroupID(chi.URLParam(r, "id")))
	if !ok {
		return
	}

	members, err := h.Store.MembersByGroup(r.Context(), group.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members", err)
		return
	}

	dtos := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		dtos = append(dtos, toMemberDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GroupStatements computes dues statements for every subscription in a group.
// GET /api/groups/{id}/statements
func (h *Handler) GroupStatements(w http.ResponseWriter, r *http.Request) {
	group, _, ok := h.scopedGroup(w, r, chitfund.GroupID(chi.URLParam(r, "id")))
	if !ok {
		return
	}

	statements, err := h.Engine.GroupStatements(r.Context(), group.ID, h.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute statements", err)
		return
	}

	dtos := make([]StatementDTO, 0, len(statements))
	for _, st := range statements {
		dtos = append(dtos, toStatementDTO(st))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// JoinGroup subscribes a member to a group.
// POST /api/groups/{id}/members
func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	group, caller, ok := h.scopedGroup(w, r, chitfund.GroupID(chi.URLParam(r, "id")))
	if !ok {
		return
	}

	var req JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	memberID := chitfund.MemberID(req.MemberID)
	if memberID == "" {
		memberID = caller.MemberID
	}
	// Members can only subscribe themselves; admins can subscribe anyone in scope.
	if !caller.Admin && memberID != caller.MemberID {
		writeError(w, http.StatusForbidden, "Cannot subscribe another member", nil)
		return
	}

	units, err := decimal.NewFromString(req.Units)
	if err != nil || units.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid units", err)
		return
	}

	sub, err := h.Engine.Join(r.Context(),
		chitfund.SubscriptionID(uuid.NewString()),
		memberID, group.ID, units,
		chitfund.Frequency(req.CollectionPattern), h.Now())
	if err != nil {
		if errors.Is(err, chitfund.ErrInvalidCadence) {
			writeError(w, http.StatusBadRequest, "Invalid collection_pattern", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to subscribe member", err)
		return
	}

	slog.Info("member joined", "subscription", sub.ID, "member", sub.MemberID, "group", group.ID)
	writeJSON(w, http.StatusCreated, toMemberDTO(sub))
}

// =============================================================================
// SUBSCRIPTION ENDPOINTS
// =============================================================================

// GetSubscription fetches a subscription.
// GET /api/subscriptions/{id}
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, _, ok := h.scopedSubscription(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(sub))
}

// GetStatement computes the per-read dues standing of a subscription.
// GET /api/subscriptions/{id}/statement
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	sub, _, ok := h.scopedSubscription(w, r)
	if !ok {
		return
	}

	statement, err := h.Engine.Statement(r.Context(), sub.ID, h.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute statement", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(statement))
}

// ListCollections returns the subscription's ledger records.
// GET /api/subscriptions/{id}/collections
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	sub, _, ok := h.scopedSubscription(w, r)
	if !ok {
		return
	}

	records, err := h.Engine.Ledger().Collections(r.Context(), sub.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list collections", err)
		return
	}

	dtos := make([]CollectionDTO, 0, len(records))
	for _, c := range records {
		dtos = append(dtos, toCollectionDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordCollection records a payment into the ledger.
// POST /api/subscriptions/{id}/collections
//
// Returns 409 if the (subscription, base period, sequence) slot is occupied;
// callers fetch the next free sequence and retry.
func (h *Handler) RecordCollection(w http.ResponseWriter, r *http.Request) {
	sub, _, ok := h.scopedSubscription(w, r)
	if !ok {
		return
	}

	var req RecordCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amountPaid, err := decimal.NewFromString(req.AmountPaid)
	if err != nil || amountPaid.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid amount_paid", err)
		return
	}
	amountDue := decimal.Zero
	if req.AmountDue != "" {
		amountDue, err = decimal.NewFromString(req.AmountDue)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount_due", err)
			return
		}
	}
	status := chitfund.CollectionStatus(req.Status)
	if req.Status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status (use PENDING, PAID, PARTIAL or FAILED)", nil)
		return
	}

	now := h.Now()
	c := chitfund.Collection{
		ID:            chitfund.CollectionID(uuid.NewString()),
		GroupMemberID: sub.ID,
		BasePeriod:    req.BasePeriod,
		Sequence:      req.Sequence,
		PeriodDate:    now,
		AmountDue:     amountDue,
		AmountPaid:    amountPaid,
		PaymentMode:   req.PaymentMode,
		CollectedAt:   now,
		Status:        status,
	}

	recorded, err := h.Engine.RecordPayment(r.Context(), c, now)
	if err != nil {
		if errors.Is(err, chitfund.ErrDuplicateSlot) {
			duplicateSlots.Inc()
			writeError(w, http.StatusConflict, "Ledger slot already occupied; retry with next sequence", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to record collection", err)
		return
	}

	slog.Info("collection recorded",
		"subscription", sub.ID, "period", recorded.BasePeriod,
		"seq", recorded.Sequence, "amount", recorded.AmountPaid)
	writeJSON(w, http.StatusCreated, toCollectionDTO(recorded))
}

// =============================================================================
// SCOPING HELPERS
// =============================================================================

// scopedGroup fetches a group and enforces the caller's organisation scope.
func (h *Handler) scopedGroup(w http.ResponseWriter, r *http.Request, id chitfund.GroupID) (chitfund.ChitGroup, Caller, bool) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required", nil)
		return chitfund.ChitGroup{}, Caller{}, false
	}

	group, err := h.Store.GetGroup(r.Context(), id)
	if err != nil {
		if chitfund.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Group not found", nil)
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to get group", err)
		}
		return chitfund.ChitGroup{}, Caller{}, false
	}

	if !caller.CanAccessGroup(group) {
		writeError(w, http.StatusForbidden, "Group outside organisation scope", nil)
		return chitfund.ChitGroup{}, Caller{}, false
	}
	return group, caller, true
}

// scopedSubscription fetches a subscription and enforces both org scope and,
// for non-admin callers, self-only access.
func (h *Handler) scopedSubscription(w http.ResponseWriter, r *http.Request) (chitfund.GroupMember, Caller, bool) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required", nil)
		return chitfund.GroupMember{}, Caller{}, false
	}

	sub, err := h.Store.GetMember(r.Context(), chitfund.SubscriptionID(chi.URLParam(r, "id")))
	if err != nil {
		if chitfund.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Subscription not found", nil)
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to get subscription", err)
		}
		return chitfund.GroupMember{}, Caller{}, false
	}

	group, err := h.Store.GetGroup(r.Context(), sub.GroupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get group", err)
		return chitfund.GroupMember{}, Caller{}, false
	}
	if !caller.CanAccessGroup(group) {
		writeError(w, http.StatusForbidden, "Subscription outside organisation scope", nil)
		return chitfund.GroupMember{}, Caller{}, false
	}
	if !caller.Admin && sub.MemberID != caller.MemberID {
		writeError(w, http.StatusForbidden, "Cannot access another member's subscription", nil)
		return chitfund.GroupMember{}, Caller{}, false
	}
	return sub, caller, true
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
