package core

import (
	"net/mail"
	"strings"
)

// FieldError names the first request field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() *FieldError {
	r.Name = strings.TrimSpace(r.Name)
	if len(r.Name) < 2 {
		return &FieldError{Field: "name", Message: "Name must be at least 2 characters"}
	}
	if !validEmail(r.Email) {
		return &FieldError{Field: "email", Message: "Invalid email address"}
	}
	if len(r.Password) < 6 {
		return &FieldError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() *FieldError {
	if !validEmail(r.Email) {
		return &FieldError{Field: "email", Message: "Invalid email address"}
	}
	if r.Password == "" {
		return &FieldError{Field: "password", Message: "Password is required"}
	}
	return nil
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r *ForgotPasswordRequest) Validate() *FieldError {
	if !validEmail(r.Email) {
		return &FieldError{Field: "email", Message: "Invalid email address"}
	}
	return nil
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r *ResetPasswordRequest) Validate() *FieldError {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return &FieldError{Field: "token", Message: "Token and password are required"}
	}
	if len(r.Password) < 6 {
		return &FieldError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

// ProductCreateRequest uses pointers for the numeric fields so a missing
// value is distinguishable from an explicit zero.
type ProductCreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
	Stock       *int     `json:"stock"`
}

func (r *ProductCreateRequest) Validate() *FieldError {
	r.Name = strings.TrimSpace(r.Name)
	if len(r.Name) < 2 {
		return &FieldError{Field: "name", Message: "Product name is required"}
	}
	if r.Price == nil {
		return &FieldError{Field: "price", Message: "Price is required"}
	}
	if *r.Price < 0 {
		return &FieldError{Field: "price", Message: "Price must be >= 0"}
	}
	if strings.TrimSpace(r.Category) == "" {
		return &FieldError{Field: "category", Message: "Category is required"}
	}
	if r.Stock == nil {
		return &FieldError{Field: "stock", Message: "Stock is required"}
	}
	if *r.Stock < 0 {
		return &FieldError{Field: "stock", Message: "Stock must be >= 0"}
	}
	return nil
}

func (r *ProductCreateRequest) Input() ProductInput {
	return ProductInput{
		Name:        r.Name,
		Description: strings.TrimSpace(r.Description),
		Price:       *r.Price,
		Category:    strings.TrimSpace(r.Category),
		Stock:       *r.Stock,
	}
}

// ProductUpdateRequest is the partial form: only provided fields are
// validated and applied.
type ProductUpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	Stock       *int     `json:"stock"`
}

func (r *ProductUpdateRequest) Validate() *FieldError {
	if r.Name != nil {
		*r.Name = strings.TrimSpace(*r.Name)
		if len(*r.Name) < 2 {
			return &FieldError{Field: "name", Message: "Product name is required"}
		}
	}
	if r.Price != nil && *r.Price < 0 {
		return &FieldError{Field: "price", Message: "Price must be >= 0"}
	}
	if r.Category != nil && strings.TrimSpace(*r.Category) == "" {
		return &FieldError{Field: "category", Message: "Category is required"}
	}
	if r.Stock != nil && *r.Stock < 0 {
		return &FieldError{Field: "stock", Message: "Stock must be >= 0"}
	}
	return nil
}

func (r *ProductUpdateRequest) Patch() ProductPatch {
	return ProductPatch{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		Stock:       r.Stock,
	}
}
