package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/logger"
	"github.com/pesio-ai/be-erp-approvals/internal/repository"
	"github.com/pesio-ai/be-erp-approvals/internal/service"
)

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	transitions *service.StatusTransitionService
	records     *service.RecordService
	payroll     *service.PayrollService
	log         *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(
	transitions *service.StatusTransitionService,
	records *service.RecordService,
	payroll *service.PayrollService,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		transitions: transitions,
		records:     records,
		payroll:     payroll,
		log:         log,
	}
}

// RegisterRoutes mounts every endpoint on mux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/purchase-requests", h.PurchaseRequests)
	mux.HandleFunc("/api/v1/purchase-requests/get", h.GetPurchaseRequest)
	mux.HandleFunc("/api/v1/withdrawals", h.Withdrawals)
	mux.HandleFunc("/api/v1/withdrawals/get", h.GetWithdrawal)
	mux.HandleFunc("/api/v1/catalogue-items/get", h.GetCatalogueItem)
	mux.HandleFunc("/api/v1/status/change", h.ChangeStatus)
	mux.HandleFunc("/api/v1/status/history", h.GetStatusHistory)
	mux.HandleFunc("/api/v1/payroll/deductions", h.PayrollDeductions)
}

// ── Status transitions ────────────────────────────────────────────────────────

// ChangeStatus handles approve/reject decisions on any axis
func (h *HTTPHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req service.ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}

	updated, err := h.transitions.ChangeStatus(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"record_kind": updated.Kind,
		"axis":        updated.Axis,
		"status":      updated.Status(),
		"updated_at":  updated.UpdatedAt(),
	}
	if updated.Withdrawal != nil {
		resp["withdrawal"] = updated.Withdrawal
	} else {
		resp["purchase_request"] = updated.PurchaseRequest
		resp["fully_approved"] = updated.PurchaseRequest.FullyApproved()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetStatusHistory returns the audit trail for a record
func (h *HTTPHandler) GetStatusHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	recordID := r.URL.Query().Get("record_id")
	if recordID == "" {
		h.writeError(w, errors.InvalidInput("record_id", "Record ID is required"))
		return
	}

	entries, err := h.records.GetStatusHistory(r.Context(), recordID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"record_id": recordID,
		"entries":   entries,
	})
}

// ── Purchase requests ─────────────────────────────────────────────────────────

// PurchaseRequests dispatches create (POST) and list (GET)
func (h *HTTPHandler) PurchaseRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createPurchaseRequest(w, r)
	case http.MethodGet:
		h.listPurchaseRequests(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *HTTPHandler) createPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePurchaseRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}

	pr, err := h.records.CreatePurchaseRequest(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pr)
}

func (h *HTTPHandler) listPurchaseRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter repository.PurchaseRequestFilter
	if dept := q.Get("department"); dept != "" {
		filter.Department = &dept
	}
	if v := q.Get("procurement_status"); v != "" {
		st, ok := repository.ParseApprovalStatus(v)
		if !ok {
			h.writeError(w, errors.InvalidInput("procurement_status", "unknown procurement status "+strconv.Quote(v)))
			return
		}
		filter.ProcurementStatus = &st
	}
	if v := q.Get("finance_status"); v != "" {
		st, ok := repository.ParseApprovalStatus(v)
		if !ok {
			h.writeError(w, errors.InvalidInput("finance_status", "unknown finance status "+strconv.Quote(v)))
			return
		}
		filter.FinanceStatus = &st
	}

	page, pageSize := pagination(r)
	items, p, err := h.records.ListPurchaseRequests(r.Context(), filter, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"purchase_requests": items,
		"total":             p.Total,
		"page":              p.Page,
		"pageSize":          p.PageSize,
	})
}

// GetPurchaseRequest handles get purchase request HTTP requests
func (h *HTTPHandler) GetPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, errors.InvalidInput("id", "Purchase request ID is required"))
		return
	}

	pr, err := h.records.GetPurchaseRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pr)
}

// ── Withdrawals ───────────────────────────────────────────────────────────────

// Withdrawals dispatches create (POST) and list (GET)
func (h *HTTPHandler) Withdrawals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWithdrawal(w, r)
	case http.MethodGet:
		h.listWithdrawals(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *HTTPHandler) createWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req service.CreateWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.InvalidInput("body", "Invalid request body"))
		return
	}

	wd, err := h.records.CreateWithdrawal(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, wd)
}

func (h *HTTPHandler) listWithdrawals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter repository.WithdrawalFilter
	if dept := q.Get("department"); dept != "" {
		filter.Department = &dept
	}
	if v := q.Get("status"); v != "" {
		st, ok := repository.ParseWithdrawalStatus(v)
		if !ok {
			h.writeError(w, errors.InvalidInput("status", "unknown withdrawal status "+strconv.Quote(v)))
			return
		}
		filter.Status = &st
	}

	page, pageSize := pagination(r)
	items, p, err := h.records.ListWithdrawals(r.Context(), filter, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"withdrawals": items,
		"total":       p.Total,
		"page":        p.Page,
		"pageSize":    p.PageSize,
	})
}

// GetWithdrawal handles get withdrawal HTTP requests
func (h *HTTPHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, errors.InvalidInput("id", "Withdrawal ID is required"))
		return
	}

	wd, err := h.records.GetWithdrawal(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wd)
}

// GetCatalogueItem handles get catalogue item HTTP requests
func (h *HTTPHandler) GetCatalogueItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, errors.InvalidInput("id", "Catalogue item ID is required"))
		return
	}

	item, err := h.records.GetCatalogueItem(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// ── Payroll ───────────────────────────────────────────────────────────────────

type computeDeductionsRequest struct {
	BaseSalary *decimal.Decimal `json:"base_salary"`
}

// deductionsResponse carries amounts rounded to two decimal places.
type deductionsResponse struct {
	EmployeeID      string `json:"employee_id,omitempty"`
	BaseSalary      string `json:"base_salary"`
	SSS             string `json:"sss"`
	PhilHealth      string `json:"philhealth"`
	PagIBIG         string `json:"pagibig"`
	TIN             string `json:"tin"`
	TotalDeductions string `json:"total_deductions"`
	Net             string `json:"net"`
}

func newDeductionsResponse(d *service.PayrollDeductions) *deductionsResponse {
	r := d.Rounded()
	return &deductionsResponse{
		BaseSalary:      r.BaseSalary.StringFixed(2),
		SSS:             r.SSS.StringFixed(2),
		PhilHealth:      r.PhilHealth.StringFixed(2),
		PagIBIG:         r.PagIBIG.StringFixed(2),
		TIN:             r.TIN.StringFixed(2),
		TotalDeductions: r.TotalDeductions.StringFixed(2),
		Net:             r.Net.StringFixed(2),
	}
}

// PayrollDeductions computes deductions for a posted base salary (POST) or a
// stored employee (GET ?employee_id=)
func (h *HTTPHandler) PayrollDeductions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req computeDeductionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, errors.InvalidInput("base_salary", "base_salary must be a number"))
			return
		}
		if req.BaseSalary == nil {
			h.writeError(w, errors.InvalidInput("base_salary", "base_salary is required"))
			return
		}

		d, err := h.payroll.ComputeDeductions(*req.BaseSalary)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newDeductionsResponse(d))

	case http.MethodGet:
		employeeID := r.URL.Query().Get("employee_id")
		if employeeID == "" {
			h.writeError(w, errors.InvalidInput("employee_id", "Employee ID is required"))
			return
		}

		result, err := h.payroll.ComputeForEmployee(r.Context(), employeeID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		resp := newDeductionsResponse(result.Deductions)
		resp.EmployeeID = result.Employee.ID
		writeJSON(w, http.StatusOK, resp)

	default:
		methodNotAllowed(w)
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	body := errorBody{Code: errors.CodeOf(err), Message: err.Error(), Field: errors.FieldOf(err)}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
		body.Message = "internal server error"
	}

	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   body,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// pagination reads the raw page parameters; the service clamps them.
func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, pageSize
}
