package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

// Shared validator; caches struct metadata across requests.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// flexFloat accepts a JSON number or a numeric string ("2.5"), as browser
// forms send either.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	v, present, err := store.ParseJSONNumber(data)
	if err != nil {
		return fmt.Errorf("estimated_hours: %w", err)
	}
	if present {
		*f = flexFloat(v)
	}
	return nil
}

func (f *flexFloat) ptr() *float64 {
	if f == nil || *f == 0 {
		return nil
	}
	v := float64(*f)
	return &v
}

type CreateTaskRequest struct {
	Title          string             `json:"title" validate:"required,max=200"`
	DueDate        string             `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	EstimatedHours *flexFloat         `json:"estimated_hours" validate:"omitempty,gt=0"`
	Importance     *int               `json:"importance" validate:"omitempty,min=1,max=10"`
	Dependencies   store.Dependencies `json:"dependencies"`
	Completed      bool               `json:"completed"`
}

func (req *CreateTaskRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.DueDate = strings.TrimSpace(req.DueDate)
	if req.EstimatedHours != nil && *req.EstimatedHours == 0 {
		req.EstimatedHours = nil
	}
}

func (req *CreateTaskRequest) toTask() *store.Task {
	importance := store.DefaultImportance
	if req.Importance != nil {
		importance = *req.Importance
	}
	return &store.Task{
		Title:          req.Title,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours.ptr(),
		Importance:     importance,
		Dependencies:   req.Dependencies,
		Completed:      req.Completed,
	}
}

// UpdateTaskRequest is a partial update; nil fields are left alone. An empty
// due_date clears it, as does estimated_hours of 0.
type UpdateTaskRequest struct {
	Title          *string             `json:"title" validate:"omitempty,max=200"`
	DueDate        *string             `json:"due_date"`
	EstimatedHours *flexFloat          `json:"estimated_hours" validate:"omitempty,gte=0"`
	Importance     *int                `json:"importance" validate:"omitempty,min=1,max=10"`
	Dependencies   *store.Dependencies `json:"dependencies"`
	Completed      *bool               `json:"completed"`
}

// Validate runs the struct tags plus the checks tags cannot express.
func (req *UpdateTaskRequest) Validate() error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	fields := map[string]string{}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		fields["title"] = "required"
	}
	if req.DueDate != nil {
		if d := strings.TrimSpace(*req.DueDate); d != "" {
			if _, err := parseDate(d); err != nil {
				fields["due_date"] = "datetime"
			}
		}
	}
	if len(fields) > 0 {
		return &fieldErrors{fields: fields}
	}
	return nil
}

func (req *UpdateTaskRequest) apply(task *store.Task) {
	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.DueDate != nil {
		task.DueDate = strings.TrimSpace(*req.DueDate)
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = req.EstimatedHours.ptr()
	}
	if req.Importance != nil {
		task.Importance = *req.Importance
	}
	if req.Dependencies != nil {
		task.Dependencies = *req.Dependencies
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
}

// ValidateRequest validates v with its own Validate method when it has one,
// otherwise with the struct tags.
func ValidateRequest(v interface{}) error {
	if vv, ok := v.(interface{ Validate() error }); ok {
		return vv.Validate()
	}
	return validate.Struct(v)
}

type fieldErrors struct {
	fields map[string]string
}

func (e *fieldErrors) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.fields))
}

// validationDetails flattens validator output to field -> failed rule.
func validationDetails(err error) (map[string]string, bool) {
	var fe *fieldErrors
	if errors.As(err, &fe) {
		return fe.fields, true
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make(map[string]string, len(ve))
		for _, f := range ve {
			out[f.Field()] = f.Tag()
		}
		return out, true
	}
	return nil, false
}

func writeValidationError(w http.ResponseWriter, err error) {
	details, ok := validationDetails(err)
	if !ok {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "validation failed",
		"details": details,
	})
}
