package validator

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

const (
	minNameLength  = 2
	maxNameLength  = 80
	maxNotesLength = 1000
)

const (
	msgNameTooShort    = "Name must be at least 2 characters"
	msgNameTooLong     = "Name must be at most 80 characters"
	msgInvalidEmail    = "Invalid email format"
	msgInvalidPhone    = "Phone must be 10-15 digits"
	msgBudgetNotNumber = "Budget must be a number"
	msgBudgetNotWhole  = "Budget must be a whole number"
	msgBudgetPositive  = "Budget must be positive"
	msgBudgetTooLarge  = "Budget is too large"
	msgNotesTooLong    = "Notes must be at most 1000 characters"
	msgBHKRequired     = "BHK is required for Apartment and Villa properties"
	msgBudgetOrder     = "Maximum budget must be greater than or equal to minimum budget"
	msgTagComma        = "Tags cannot contain commas"
)

var phonePattern = regexp.MustCompile(`^\d{10,15}$`)

// Result is the tagged outcome of validating one candidate: either Value is
// usable or Errors lists every failure in rule order.
type Result[T any] struct {
	Value  T
	Errors apperrors.FieldErrors
}

// OK reports whether validation succeeded.
func (r Result[T]) OK() bool {
	return len(r.Errors) == 0
}

// Err returns a *apperrors.ValidationError, or nil on success.
func (r Result[T]) Err() error {
	return apperrors.NewValidationError(r.Errors)
}

// ValidateLead normalizes and validates a full candidate lead.
//
// Per-field checks run first in canonical field order, then the cross-field
// rules. A cross-field rule is skipped when one of its inputs already failed.
func ValidateLead(in model.LeadInput) Result[model.LeadRecord] {
	var errs apperrors.FieldErrors
	var rec model.LeadRecord

	if v, msg := checkFullName(in.FullName); msg != "" {
		errs.Add(string(model.FieldFullName), msg)
	} else {
		rec.FullName = v
	}
	if v, msg := checkEmail(in.Email); msg != "" {
		errs.Add(string(model.FieldEmail), msg)
	} else {
		rec.Email = v
	}
	if v, msg := checkPhone(in.Phone); msg != "" {
		errs.Add(string(model.FieldPhone), msg)
	} else {
		rec.Phone = v
	}
	rec.City = requiredEnum(&errs, model.FieldCity, model.Cities, "City", in.City)
	rec.PropertyType = requiredEnum(&errs, model.FieldPropertyType, model.PropertyTypes, "Property type", in.PropertyType)
	if v, msg := checkOptionalEnum(model.BHKs, in.BHK); msg != "" {
		errs.Add(string(model.FieldBHK), msg)
	} else {
		rec.BHK = v
	}
	rec.Purpose = requiredEnum(&errs, model.FieldPurpose, model.Purposes, "Purpose", in.Purpose)
	if v, msg := checkBudget(in.BudgetMin); msg != "" {
		errs.Add(string(model.FieldBudgetMin), msg)
	} else {
		rec.BudgetMin = v
	}
	if v, msg := checkBudget(in.BudgetMax); msg != "" {
		errs.Add(string(model.FieldBudgetMax), msg)
	} else {
		rec.BudgetMax = v
	}
	rec.Timeline = requiredEnum(&errs, model.FieldTimeline, model.Timelines, "Timeline", in.Timeline)
	rec.Source = requiredEnum(&errs, model.FieldSource, model.Sources, "Source", in.Source)
	if v, msg := checkOptionalEnum(model.Statuses, in.Status); msg != "" {
		errs.Add(string(model.FieldStatus), msg)
	} else if v == nil {
		rec.Status = model.DefaultStatus
	} else {
		rec.Status = *v
	}
	if v, msg := checkNotes(in.Notes); msg != "" {
		errs.Add(string(model.FieldNotes), msg)
	} else {
		rec.Notes = v
	}
	if tags, msg := checkTags(in.Tags); msg != "" {
		errs.Add(string(model.FieldTags), msg)
	} else {
		rec.Tags = tags
	}

	view := leadView{
		propertyType: rec.PropertyType,
		bhk:          rec.BHK,
		budgetMin:    rec.BudgetMin,
		budgetMax:    rec.BudgetMax,
	}
	applyCrossFieldRules(&errs, view)

	if !model.RequiresBHK(rec.PropertyType) {
		rec.BHK = nil
	}
	return Result[model.LeadRecord]{Value: rec, Errors: errs}
}

// ValidateLeadUpdate validates a partial update. Only supplied fields are
// checked; cross-field rules see the current record overlaid with the patch.
// current may be nil when the stored record is not available.
func ValidateLeadUpdate(in model.LeadUpdateInput, current *model.Lead) Result[model.LeadUpdate] {
	var errs apperrors.FieldErrors
	update := model.LeadUpdate{ID: strings.TrimSpace(in.ID), Patch: model.LeadPatch{}}
	in.ID = update.ID

	if err := Validate(in); err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			errs = append(errs, verr.Fields...)
		} else {
			errs.Add("id", err.Error())
		}
	}
	if in.UpdatedAt != nil && !errs.Has("updatedAt") {
		if ts, err := time.Parse(time.RFC3339Nano, *in.UpdatedAt); err == nil {
			update.ExpectedUpdatedAt = &ts
		} else {
			errs.Add("updatedAt", "must be an ISO 8601 date-time")
		}
	}

	patch := update.Patch
	if in.FullName != nil {
		if v, msg := checkFullName(in.FullName); msg != "" {
			errs.Add(string(model.FieldFullName), msg)
		} else {
			patch[model.FieldFullName] = v
		}
	}
	if in.Email != nil {
		if v, msg := checkEmail(in.Email); msg != "" {
			errs.Add(string(model.FieldEmail), msg)
		} else {
			patch[model.FieldEmail] = optionalValue(v)
		}
	}
	if in.Phone != nil {
		if v, msg := checkPhone(in.Phone); msg != "" {
			errs.Add(string(model.FieldPhone), msg)
		} else {
			patch[model.FieldPhone] = v
		}
	}
	patchEnum(&errs, patch, model.FieldCity, model.Cities, "City", in.City)
	patchEnum(&errs, patch, model.FieldPropertyType, model.PropertyTypes, "Property type", in.PropertyType)
	if in.BHK != nil {
		if v, msg := checkOptionalEnum(model.BHKs, in.BHK); msg != "" {
			errs.Add(string(model.FieldBHK), msg)
		} else {
			patch[model.FieldBHK] = optionalValue(v)
		}
	}
	patchEnum(&errs, patch, model.FieldPurpose, model.Purposes, "Purpose", in.Purpose)
	if in.BudgetMin != nil {
		if v, msg := checkBudget(in.BudgetMin); msg != "" {
			errs.Add(string(model.FieldBudgetMin), msg)
		} else {
			patch[model.FieldBudgetMin] = optionalInt(v)
		}
	}
	if in.BudgetMax != nil {
		if v, msg := checkBudget(in.BudgetMax); msg != "" {
			errs.Add(string(model.FieldBudgetMax), msg)
		} else {
			patch[model.FieldBudgetMax] = optionalInt(v)
		}
	}
	patchEnum(&errs, patch, model.FieldTimeline, model.Timelines, "Timeline", in.Timeline)
	patchEnum(&errs, patch, model.FieldSource, model.Sources, "Source", in.Source)
	patchEnum(&errs, patch, model.FieldStatus, model.Statuses, "Status", in.Status)
	if in.Notes != nil {
		if v, msg := checkNotes(in.Notes); msg != "" {
			errs.Add(string(model.FieldNotes), msg)
		} else {
			patch[model.FieldNotes] = optionalValue(v)
		}
	}
	if in.Tags != nil {
		if tags, msg := checkTags(in.Tags); msg != "" {
			errs.Add(string(model.FieldTags), msg)
		} else {
			patch[model.FieldTags] = tags
		}
	}

	applyPatchRules(&errs, current, patch)

	return Result[model.LeadUpdate]{Value: update, Errors: errs}
}

// CheckLeadPatch re-runs the cross-field rules of an already validated patch
// against current, the stored record as seen under the row lock. It returns a
// *apperrors.ValidationError when the merged record would break a rule, and
// clears a bhk that the merged property type no longer allows.
func CheckLeadPatch(current *model.Lead, patch model.LeadPatch) error {
	var errs apperrors.FieldErrors
	applyPatchRules(&errs, current, patch)
	return apperrors.NewValidationError(errs)
}

// applyPatchRules evaluates the cross-field rules a patch touches over the
// current record overlaid with the patch.
func applyPatchRules(errs *apperrors.FieldErrors, current *model.Lead, patch model.LeadPatch) {
	view, touched := mergedView(current, patch, *errs)
	if touched.propertyType || touched.bhk {
		if bhkMissing(view) {
			errs.Add(string(model.FieldBHK), msgBHKRequired)
		} else if view.propertyType != "" && !model.RequiresBHK(view.propertyType) && view.bhk != nil {
			patch[model.FieldBHK] = nil
		}
	}
	if (touched.budgetMin || touched.budgetMax) && budgetInverted(view) {
		errs.Add(string(model.FieldBudgetMax), msgBudgetOrder)
	}
}

// leadView holds the inputs of the cross-field rules.
type leadView struct {
	propertyType string
	bhk          *string
	budgetMin    *int64
	budgetMax    *int64
	// skip marks inputs that failed their own check.
	skipBHKRule    bool
	skipBudgetRule bool
}

type touchedFields struct {
	propertyType, bhk, budgetMin, budgetMax bool
}

func applyCrossFieldRules(errs *apperrors.FieldErrors, view leadView) {
	view.skipBHKRule = errs.Has(string(model.FieldPropertyType)) || errs.Has(string(model.FieldBHK))
	view.skipBudgetRule = errs.Has(string(model.FieldBudgetMin)) || errs.Has(string(model.FieldBudgetMax))
	if bhkMissing(view) {
		errs.Add(string(model.FieldBHK), msgBHKRequired)
	}
	if budgetInverted(view) {
		errs.Add(string(model.FieldBudgetMax), msgBudgetOrder)
	}
}

// bhkMissing: residential property types need a room count.
func bhkMissing(v leadView) bool {
	return !v.skipBHKRule && model.RequiresBHK(v.propertyType) && v.bhk == nil
}

// budgetInverted: when both budgets are present the maximum may not be below the minimum.
func budgetInverted(v leadView) bool {
	return !v.skipBudgetRule && v.budgetMin != nil && v.budgetMax != nil && *v.budgetMax < *v.budgetMin
}

func mergedView(current *model.Lead, patch model.LeadPatch, errs apperrors.FieldErrors) (leadView, touchedFields) {
	var view leadView
	if current != nil {
		view.propertyType = current.PropertyType
		view.bhk = current.BHK
		view.budgetMin = current.BudgetMin
		view.budgetMax = current.BudgetMax
	}

	var touched touchedFields
	if v, ok := patch[model.FieldPropertyType]; ok {
		view.propertyType, _ = v.(string)
		touched.propertyType = true
	}
	if v, ok := patch[model.FieldBHK]; ok {
		view.bhk = anyToStringPtr(v)
		touched.bhk = true
	}
	if v, ok := patch[model.FieldBudgetMin]; ok {
		view.budgetMin = anyToIntPtr(v)
		touched.budgetMin = true
	}
	if v, ok := patch[model.FieldBudgetMax]; ok {
		view.budgetMax = anyToIntPtr(v)
		touched.budgetMax = true
	}

	view.skipBHKRule = errs.Has(string(model.FieldPropertyType)) || errs.Has(string(model.FieldBHK))
	view.skipBudgetRule = errs.Has(string(model.FieldBudgetMin)) || errs.Has(string(model.FieldBudgetMax))
	return view, touched
}

func checkFullName(v *string) (string, string) {
	if v == nil {
		return "", "Full name is required"
	}
	name := strings.TrimSpace(*v)
	n := utf8.RuneCountInString(name)
	switch {
	case n < minNameLength:
		return "", msgNameTooShort
	case n > maxNameLength:
		return "", msgNameTooLong
	}
	return name, ""
}

func checkEmail(v *string) (*string, string) {
	if v == nil {
		return nil, ""
	}
	email := strings.TrimSpace(*v)
	if email == "" {
		return nil, ""
	}
	if err := ValidateVar(email, "email"); err != nil {
		return nil, msgInvalidEmail
	}
	return &email, ""
}

func checkPhone(v *string) (string, string) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", "Phone is required"
	}
	phone := strings.TrimSpace(*v)
	if !phonePattern.MatchString(phone) {
		return "", msgInvalidPhone
	}
	return phone, ""
}

func requiredEnum(errs *apperrors.FieldErrors, field model.FieldName, enum model.Enum, label string, v *string) string {
	if v == nil || *v == "" {
		errs.Add(string(field), label+" is required")
		return ""
	}
	if !enum.Contains(*v) {
		errs.Add(string(field), invalidEnumMessage(enum))
		return ""
	}
	return *v
}

func patchEnum(errs *apperrors.FieldErrors, patch model.LeadPatch, field model.FieldName, enum model.Enum, label string, v *string) {
	if v == nil {
		return
	}
	if value := requiredEnum(errs, field, enum, label, v); value != "" {
		patch[field] = value
	}
}

func checkOptionalEnum(enum model.Enum, v *string) (*string, string) {
	if v == nil || *v == "" {
		return nil, ""
	}
	if !enum.Contains(*v) {
		return nil, invalidEnumMessage(enum)
	}
	value := *v
	return &value, ""
}

func checkBudget(v *model.RawNumber) (*int64, string) {
	if v == nil {
		return nil, ""
	}
	raw := strings.TrimSpace(string(*v))
	if raw == "" {
		return nil, ""
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n <= 0 {
			return nil, msgBudgetPositive
		}
		return &n, ""
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, msgBudgetNotNumber
	}
	if f != math.Trunc(f) {
		return nil, msgBudgetNotWhole
	}
	if f <= 0 {
		return nil, msgBudgetPositive
	}
	if f >= math.MaxInt64 {
		return nil, msgBudgetTooLarge
	}
	n := int64(f)
	return &n, ""
}

// checkNotes trims notes the same way the CSV reader does, so exported notes
// import unchanged. Blank notes are absent.
func checkNotes(v *string) (*string, string) {
	if v == nil {
		return nil, ""
	}
	notes := strings.TrimSpace(*v)
	if notes == "" {
		return nil, ""
	}
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, msgNotesTooLong
	}
	return &notes, ""
}

// checkTags normalizes tags. Commas are refused since CSV stores tags comma separated.
func checkTags(tags []string) ([]string, string) {
	for _, tag := range tags {
		if strings.Contains(tag, ",") {
			return nil, msgTagComma
		}
	}
	return normalizeTags(tags), ""
}

// normalizeTags trims every tag and drops blanks. Order and duplicates are kept.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func optionalValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func optionalInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func anyToStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func anyToIntPtr(v any) *int64 {
	i, ok := v.(int64)
	if !ok {
		return nil
	}
	return &i
}
