package domain

import (
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MinRequestQuantity      = 1
	MaxRequestQuantity      = 100
	MinSpecificationLength  = 10
	MaxSpecificationLength  = 500
	AttachmentContentType   = "application/pdf"
	AttachmentExtension     = ".pdf"
	MaxAttachmentSize       = 5 << 20
	MaxTicketTitleLength    = 200
	MaxTicketDescriptionLen = 4000
)

type RequestPayload struct {
	Category         string
	Quantity         int
	Specification    string
	Department       string
	Location         string
	RequestType      string
	ExpectedDelivery *time.Time
}

// Validate checks the payload and returns the normalized request fields.
func (p RequestPayload) Validate(now time.Time) (AssetRequest, error) {
	category, err := ParseAssetCategory(p.Category)
	if err != nil {
		return AssetRequest{}, err
	}
	if p.Quantity < MinRequestQuantity || p.Quantity > MaxRequestQuantity {
		return AssetRequest{}, validationf("quantity must be between %d and %d", MinRequestQuantity, MaxRequestQuantity)
	}
	spec := strings.TrimSpace(p.Specification)
	if n := utf8.RuneCountInString(spec); n < MinSpecificationLength || n > MaxSpecificationLength {
		return AssetRequest{}, validationf("specification must be %d-%d characters", MinSpecificationLength, MaxSpecificationLength)
	}
	department := strings.TrimSpace(p.Department)
	if department == "" {
		return AssetRequest{}, validationf("department is required")
	}
	location := strings.TrimSpace(p.Location)
	if location == "" {
		return AssetRequest{}, validationf("location is required")
	}
	requestType, err := ParseRequestType(p.RequestType)
	if err != nil {
		return AssetRequest{}, err
	}
	if p.ExpectedDelivery != nil && !p.ExpectedDelivery.After(now) {
		return AssetRequest{}, validationf("expected delivery date must be in the future")
	}

	return AssetRequest{
		Category:         category,
		Quantity:         p.Quantity,
		Specification:    spec,
		Department:       department,
		Location:         location,
		RequestType:      requestType,
		ExpectedDelivery: p.ExpectedDelivery,
	}, nil
}

type AssetInput struct {
	Tag          string
	Name         string
	Category     string
	Department   string
	Location     string
	PurchaseDate *time.Time
	PurchaseCost string
	WarrantyEnd  *time.Time
	Specs        map[string]string
}

func (in AssetInput) Validate() (Asset, error) {
	tag := strings.ToUpper(strings.TrimSpace(in.Tag))
	if tag == "" {
		return Asset{}, validationf("tag is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Asset{}, validationf("name is required")
	}
	category, err := ParseAssetCategory(in.Category)
	if err != nil {
		return Asset{}, err
	}
	cost := decimal.Zero
	if raw := strings.TrimSpace(in.PurchaseCost); raw != "" {
		cost, err = decimal.NewFromString(raw)
		if err != nil {
			return Asset{}, validationf("purchase cost %q is not a number", raw)
		}
		if cost.IsNegative() {
			return Asset{}, validationf("purchase cost must not be negative")
		}
	}
	if in.PurchaseDate != nil && in.WarrantyEnd != nil && in.WarrantyEnd.Before(*in.PurchaseDate) {
		return Asset{}, validationf("warranty end precedes purchase date")
	}
	specs := make(map[string]string, len(in.Specs))
	for k, v := range in.Specs {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		specs[key] = strings.TrimSpace(v)
	}

	return Asset{
		Tag:          tag,
		Name:         name,
		Category:     category,
		Status:       AssetAvailable,
		Department:   strings.TrimSpace(in.Department),
		Location:     strings.TrimSpace(in.Location),
		PurchaseDate: in.PurchaseDate,
		PurchaseCost: cost,
		WarrantyEnd:  in.WarrantyEnd,
		Specs:        specs,
	}, nil
}

type TicketPayload struct {
	AssetID     uint
	Title       string
	Description string
	Priority    string
	Category    string
	Department  string
	Location    string
	Deadline    *time.Time
	Attachment  *Attachment
}

func (p TicketPayload) Validate() (Ticket, error) {
	if p.AssetID == 0 {
		return Ticket{}, validationf("asset id is required")
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Ticket{}, validationf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTicketTitleLength {
		return Ticket{}, validationf("title must be at most %d characters", MaxTicketTitleLength)
	}
	description := strings.TrimSpace(p.Description)
	if description == "" {
		return Ticket{}, validationf("description is required")
	}
	if utf8.RuneCountInString(description) > MaxTicketDescriptionLen {
		return Ticket{}, validationf("description must be at most %d characters", MaxTicketDescriptionLen)
	}
	location := strings.TrimSpace(p.Location)
	if location == "" {
		return Ticket{}, validationf("location is required")
	}
	department := strings.TrimSpace(p.Department)
	if department == "" {
		return Ticket{}, validationf("department is required")
	}
	priority := PriorityMedium
	if strings.TrimSpace(p.Priority) != "" {
		var err error
		if priority, err = ParseTicketPriority(p.Priority); err != nil {
			return Ticket{}, err
		}
	}
	category, err := ParseTicketCategory(p.Category)
	if err != nil {
		return Ticket{}, err
	}
	if p.Attachment != nil {
		if err := ValidateAttachment(*p.Attachment); err != nil {
			return Ticket{}, err
		}
	}

	return Ticket{
		AssetID:     p.AssetID,
		Title:       title,
		Description: description,
		Priority:    priority,
		Category:    category,
		Department:  department,
		Location:    location,
		Deadline:    p.Deadline,
		Attachment:  p.Attachment,
	}, nil
}

// ValidateAttachment accepts a single declared content type only.
func ValidateAttachment(a Attachment) error {
	contentType := strings.ToLower(strings.TrimSpace(a.ContentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType != AttachmentContentType {
		return fmt.Errorf("%w: content type %q is not %s", ErrInvalidAttachment, a.ContentType, AttachmentContentType)
	}
	if !strings.EqualFold(filepath.Ext(strings.TrimSpace(a.Name)), AttachmentExtension) {
		return fmt.Errorf("%w: file name %q must end in %s", ErrInvalidAttachment, a.Name, AttachmentExtension)
	}
	if a.Size <= 0 || a.Size > MaxAttachmentSize {
		return fmt.Errorf("%w: size must be between 1 and %d bytes", ErrInvalidAttachment, MaxAttachmentSize)
	}
	return nil
}

type UserInput struct {
	Email        string
	Password     string
	Name         string
	EmployeeCode string
	Department   string
	Location     string
	Role         string
}

func (in UserInput) Validate() (User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return User{}, validationf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, validationf("email %q is invalid", in.Email)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return User{}, validationf("name is required")
	}
	code := strings.ToUpper(strings.TrimSpace(in.EmployeeCode))
	if code == "" {
		return User{}, validationf("employee code is required")
	}
	department := strings.TrimSpace(in.Department)
	if department == "" {
		return User{}, validationf("department is required")
	}
	role := RoleUser
	if strings.TrimSpace(in.Role) != "" {
		var err error
		if role, err = ParseRole(in.Role); err != nil {
			return User{}, err
		}
	}
	return User{
		Email:        email,
		Name:         name,
		EmployeeCode: code,
		Department:   department,
		Location:     strings.TrimSpace(in.Location),
		Role:         role,
		Active:       true,
	}, nil
}
