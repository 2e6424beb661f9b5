package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/logger"
	"github.com/pesio-ai/be-erp-approvals/internal/repository"
	"github.com/pesio-ai/be-erp-approvals/internal/service"
)

// ApprovalServiceName is the fully-qualified gRPC service name.
const ApprovalServiceName = "erp.approvals.v1.ApprovalService"

// ApprovalServiceServer is the server API for ApprovalService. Messages are
// google.protobuf.Struct so the service needs no generated code.
type ApprovalServiceServer interface {
	ChangeStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ComputePayrollDeductions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatusHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ApprovalServiceDesc describes ApprovalService for grpc.Server.RegisterService.
var ApprovalServiceDesc = grpc.ServiceDesc{
	ServiceName: ApprovalServiceName,
	HandlerType: (*ApprovalServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ChangeStatus",
			Handler: unaryHandler("ChangeStatus", func(s ApprovalServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.ChangeStatus(ctx, in)
			}),
		},
		{
			MethodName: "ComputePayrollDeductions",
			Handler: unaryHandler("ComputePayrollDeductions", func(s ApprovalServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.ComputePayrollDeductions(ctx, in)
			}),
		},
		{
			MethodName: "GetStatusHistory",
			Handler: unaryHandler("GetStatusHistory", func(s ApprovalServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.GetStatusHistory(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "erp/approvals/v1/approvals.proto",
}

func unaryHandler(
	method string,
	call func(ApprovalServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + ApprovalServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ApprovalServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ApprovalServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCHandler implements ApprovalServiceServer
type GRPCHandler struct {
	transitions *service.StatusTransitionService
	records     *service.RecordService
	payroll     *service.PayrollService
	logger      *logger.Logger
}

// NewGRPCHandler creates a new gRPC handler
func NewGRPCHandler(
	transitions *service.StatusTransitionService,
	records *service.RecordService,
	payroll *service.PayrollService,
	log *logger.Logger,
) *GRPCHandler {
	return &GRPCHandler{
		transitions: transitions,
		records:     records,
		payroll:     payroll,
		logger:      log.Component("grpc"),
	}
}

// Register adds the handler to server.
func (h *GRPCHandler) Register(server *grpc.Server) {
	server.RegisterService(&ApprovalServiceDesc, h)
}

// ChangeStatus applies a status decision
func (h *GRPCHandler) ChangeStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := &service.ChangeStatusRequest{
		RecordID:         stringField(in, "record_id"),
		Axis:             stringField(in, "axis"),
		TargetStatus:     stringField(in, "target_status"),
		ActingDepartment: stringField(in, "acting_department"),
		Remarks:          stringField(in, "remarks"),
	}

	h.logger.Info().
		Str("record_id", req.RecordID).
		Str("axis", req.Axis).
		Str("target_status", req.TargetStatus).
		Str("acting_department", req.ActingDepartment).
		Msg("gRPC ChangeStatus called")

	updated, err := h.transitions.ChangeStatus(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}

	out := map[string]interface{}{
		"record_id":   req.RecordID,
		"record_kind": string(updated.Kind),
		"axis":        string(updated.Axis),
		"status":      updated.Status(),
		"updated_at":  updated.UpdatedAt().UTC().Format(time.RFC3339Nano),
	}
	if pr := updated.PurchaseRequest; pr != nil {
		out["procurement_status"] = string(pr.ProcurementStatus)
		out["finance_status"] = string(pr.FinanceStatus)
		out["fully_approved"] = pr.FullyApproved()
		if remarks := remarksOn(pr, updated.Axis); remarks != nil {
			out["remarks"] = *remarks
		}
	}
	if wd := updated.Withdrawal; wd != nil && wd.Remarks != nil {
		out["remarks"] = *wd.Remarks
	}

	return newStruct(out)
}

// ComputePayrollDeductions computes deductions for base_salary, or for the
// stored salary of employee_id when base_salary is absent.
func (h *GRPCHandler) ComputePayrollDeductions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if employeeID := stringField(in, "employee_id"); employeeID != "" {
		result, err := h.payroll.ComputeForEmployee(ctx, employeeID)
		if err != nil {
			return nil, toStatus(err)
		}
		out := deductionsMap(result.Deductions)
		out["employee_id"] = result.Employee.ID
		return newStruct(out)
	}

	base, err := decimalField(in, "base_salary")
	if err != nil {
		return nil, toStatus(err)
	}
	d, err := h.payroll.ComputeDeductions(base)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(deductionsMap(d))
}

// GetStatusHistory returns the audit trail of record_id
func (h *GRPCHandler) GetStatusHistory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	recordID := stringField(in, "record_id")

	entries, err := h.records.GetStatusHistory(ctx, recordID)
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		item := map[string]interface{}{
			"id":            e.ID,
			"record_kind":   string(e.RecordKind),
			"axis":          string(e.Axis),
			"status_before": e.StatusBefore,
			"status_after":  e.StatusAfter,
			"department":    e.Department,
			"performed_at":  e.PerformedAt.UTC().Format(time.RFC3339Nano),
		}
		if e.Remarks != nil {
			item["remarks"] = *e.Remarks
		}
		list = append(list, item)
	}

	return newStruct(map[string]interface{}{
		"record_id": recordID,
		"entries":   list,
	})
}

// ── Conversion helpers ────────────────────────────────────────────────────────

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// decimalField reads key as a decimal string, falling back to a JSON number.
func decimalField(s *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return decimal.Zero, errors.InvalidInput(key, key+" is required")
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return decimal.Zero, errors.InvalidInput(key, key+" must be a number")
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	default:
		return decimal.Zero, errors.InvalidInput(key, key+" must be a number")
	}
}

func deductionsMap(d *service.PayrollDeductions) map[string]interface{} {
	r := d.Rounded()
	return map[string]interface{}{
		"base_salary":      r.BaseSalary.StringFixed(2),
		"sss":              r.SSS.StringFixed(2),
		"philhealth":       r.PhilHealth.StringFixed(2),
		"pagibig":          r.PagIBIG.StringFixed(2),
		"tin":              r.TIN.StringFixed(2),
		"total_deductions": r.TotalDeductions.StringFixed(2),
		"net":              r.Net.StringFixed(2),
	}
}

func remarksOn(pr *repository.PurchaseRequest, axis repository.Axis) *string {
	if axis == repository.AxisFinance {
		return pr.FinanceRemarks
	}
	return pr.ProcurementRemarks
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

// toStatus converts an application error into a gRPC status error.
func toStatus(err error) error {
	code := errors.GRPCCode(err)
	if code == codes.Internal {
		return status.Error(code, "internal server error")
	}
	return status.Error(code, err.Error())
}
