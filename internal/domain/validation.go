package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Minimum lengths for submitted ticket fields, counted in characters after trimming.
const (
	MinTitleLength           = 5
	MinApplicationNameLength = 2
	MinDescriptionLength     = 10
	MinStepsLength           = 10
	MinCustomerNameLength    = 2
)

// FieldErrors maps a field name to the reason it was rejected.
type FieldErrors map[string]string

// Normalize trims whitespace, lower-cases the severity and drops blank attachment URLs.
// Attachment lists are never nil; the stored columns are NOT NULL arrays.
func (n NewTicket) Normalize() NewTicket {
	out := NewTicket{
		Title:            strings.TrimSpace(n.Title),
		ApplicationName:  strings.TrimSpace(n.ApplicationName),
		Description:      strings.TrimSpace(n.Description),
		StepsToReproduce: strings.TrimSpace(n.StepsToReproduce),
		Severity:         Severity(strings.ToLower(strings.TrimSpace(string(n.Severity)))),
		Customer: Customer{
			Name:  strings.TrimSpace(n.Customer.Name),
			Email: strings.TrimSpace(n.Customer.Email),
		},
		ImageURLs: compactURLs(n.ImageURLs),
		VideoURLs: compactURLs(n.VideoURLs),
	}
	if n.Customer.Phone != nil {
		if phone := strings.TrimSpace(*n.Customer.Phone); phone != "" {
			out.Customer.Phone = &phone
		}
	}
	return out
}

// Validate checks required fields and format rules. It returns nil or a non-empty FieldErrors.
func (n NewTicket) Validate() FieldErrors {
	errs := FieldErrors{}
	minLength(errs, "title", n.Title, MinTitleLength)
	minLength(errs, "application_name", n.ApplicationName, MinApplicationNameLength)
	minLength(errs, "description", n.Description, MinDescriptionLength)
	minLength(errs, "steps_to_reproduce", n.StepsToReproduce, MinStepsLength)
	minLength(errs, "customer_name", n.Customer.Name, MinCustomerNameLength)
	if !n.Severity.Valid() {
		errs["severity"] = "must be one of low, medium, high, critical"
	}
	if !ValidEmail(n.Customer.Email) {
		errs["customer_email"] = "must be a valid email address"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the fields a patch sets against the same rules as submission.
func (p TicketPatch) Validate() FieldErrors {
	errs := FieldErrors{}
	if p.Title != nil {
		minLength(errs, "title", *p.Title, MinTitleLength)
	}
	if p.ApplicationName != nil {
		minLength(errs, "application_name", *p.ApplicationName, MinApplicationNameLength)
	}
	if p.Description != nil {
		minLength(errs, "description", *p.Description, MinDescriptionLength)
	}
	if p.StepsToReproduce != nil {
		minLength(errs, "steps_to_reproduce", *p.StepsToReproduce, MinStepsLength)
	}
	if p.Severity != nil && !p.Severity.Valid() {
		errs["severity"] = "must be one of low, medium, high, critical"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Details converts errs into error details for transport.
func (errs FieldErrors) Details() map[string]any {
	details := make(map[string]any, len(errs))
	for field, reason := range errs {
		details[field] = reason
	}
	return details
}

// ValidEmail accepts a bare address such as "jane@example.com".
func ValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func minLength(errs FieldErrors, field, value string, min int) {
	if value == "" {
		errs[field] = "is required"
		return
	}
	if utf8.RuneCountInString(value) < min {
		errs[field] = fmt.Sprintf("must be at least %d characters", min)
	}
}

func compactURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
