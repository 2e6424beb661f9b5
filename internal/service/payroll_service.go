package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/logger"
	"github.com/pesio-ai/be-erp-approvals/internal/repository"
)

// Deduction rates applied to base salary. Fixed business constants, not
// tracked against yearly statutory tables.
const (
	SSSRate            = "0.05"
	PhilHealthRate     = "0.035"
	PagIBIGRate        = "0.03"
	WithholdingTaxRate = "0.10"
)

var (
	sssRate            = decimal.RequireFromString(SSSRate)
	philHealthRate     = decimal.RequireFromString(PhilHealthRate)
	pagIBIGRate        = decimal.RequireFromString(PagIBIGRate)
	withholdingTaxRate = decimal.RequireFromString(WithholdingTaxRate)
)

// currencyPlaces is the rounding applied for display.
const currencyPlaces = 2

// PayrollDeductions holds full-precision deduction amounts for one pay period.
type PayrollDeductions struct {
	BaseSalary      decimal.Decimal
	SSS             decimal.Decimal
	PhilHealth      decimal.Decimal
	PagIBIG         decimal.Decimal
	TIN             decimal.Decimal
	TotalDeductions decimal.Decimal
	Net             decimal.Decimal
}

// Rounded returns a copy with every amount rounded to currency places.
func (d *PayrollDeductions) Rounded() *PayrollDeductions {
	return &PayrollDeductions{
		BaseSalary:      d.BaseSalary.Round(currencyPlaces),
		SSS:             d.SSS.Round(currencyPlaces),
		PhilHealth:      d.PhilHealth.Round(currencyPlaces),
		PagIBIG:         d.PagIBIG.Round(currencyPlaces),
		TIN:             d.TIN.Round(currencyPlaces),
		TotalDeductions: d.TotalDeductions.Round(currencyPlaces),
		Net:             d.Net.Round(currencyPlaces),
	}
}

// ComputePayrollDeductions derives SSS, PhilHealth, Pag-IBIG and withholding
// tax from baseSalary and nets them against it.
func ComputePayrollDeductions(baseSalary decimal.Decimal) (*PayrollDeductions, error) {
	if baseSalary.IsNegative() {
		return nil, errors.InvalidInput("base_salary", "base salary must not be negative")
	}

	d := &PayrollDeductions{
		BaseSalary: baseSalary,
		SSS:        baseSalary.Mul(sssRate),
		PhilHealth: baseSalary.Mul(philHealthRate),
		PagIBIG:    baseSalary.Mul(pagIBIGRate),
		TIN:        baseSalary.Mul(withholdingTaxRate),
	}
	d.TotalDeductions = d.SSS.Add(d.PhilHealth).Add(d.PagIBIG).Add(d.TIN)
	d.Net = baseSalary.Sub(d.TotalDeductions)
	return d, nil
}

// EmployeePayroll is an employee together with their computed deductions.
type EmployeePayroll struct {
	Employee   *repository.Employee
	Deductions *PayrollDeductions
}

// PayrollService computes deductions for raw amounts and stored employees.
type PayrollService struct {
	employees EmployeeStore
	log       *logger.Logger
}

// NewPayrollService creates a new PayrollService.
func NewPayrollService(employees EmployeeStore, log *logger.Logger) *PayrollService {
	return &PayrollService{employees: employees, log: log}
}

// ComputeDeductions runs the calculator on baseSalary.
func (s *PayrollService) ComputeDeductions(baseSalary decimal.Decimal) (*PayrollDeductions, error) {
	return ComputePayrollDeductions(baseSalary)
}

// ComputeForEmployee runs the calculator on an employee's stored base salary.
func (s *PayrollService) ComputeForEmployee(ctx context.Context, employeeID string) (*EmployeePayroll, error) {
	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	deductions, err := ComputePayrollDeductions(emp.BaseSalary)
	if err != nil {
		s.log.Warn().Err(err).
			Str("employee_id", employeeID).
			Msg("Stored base salary rejected by payroll calculator")
		return nil, err
	}

	return &EmployeePayroll{Employee: emp, Deductions: deductions}, nil
}
