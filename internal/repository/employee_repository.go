package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/database"
	"github.com/pesio-ai/be-erp-approvals/internal/platform/errors"
)

// EmployeeRepository reads the employee fields payroll needs.
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new EmployeeRepository.
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetByID retrieves an employee by primary key.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*Employee, error) {
	query := `
		SELECT id, employee_number, full_name, department, base_salary,
		       created_at, updated_at
		FROM employees
		WHERE id = $1
	`

	emp := &Employee{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&emp.ID,
		&emp.EmployeeNumber,
		&emp.FullName,
		&emp.Department,
		&emp.BaseSalary,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("employee", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get employee")
	}
	return emp, nil
}
