package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Params is the typed parameter record of one analysis family.
// Implementations marshal to the JSON object embedded in the prompt.
type Params interface {
	params()
}

type OneWayANOVAParams struct {
	Factor       string `json:"factor" validate:"required"`
	DependentVar string `json:"dependentVar,omitempty"`
}

type TwoWayANOVAParams struct {
	Factor1      string `json:"factor1" validate:"required"`
	Factor2      string `json:"factor2" validate:"required"`
	DependentVar string `json:"dependentVar,omitempty"`
}

type TTestParams struct {
	TestType  string   `json:"testType" validate:"required,oneof=independent paired one-sample"`
	Variables []string `json:"variables" validate:"required,min=1"`
}

// RelationshipParams serves correlation and regression.
type RelationshipParams struct {
	DependentVar    string   `json:"dependentVar" validate:"required"`
	IndependentVars []string `json:"independentVars" validate:"required,min=1"`
}

// GeneralParams is the fallback for every other analysis type.
type GeneralParams struct {
	Variables []string `json:"variables,omitempty"`
}

func (OneWayANOVAParams) params()  {}
func (TwoWayANOVAParams) params()  {}
func (TTestParams) params()        {}
func (RelationshipParams) params() {}
func (GeneralParams) params()      {}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// BindParams turns the loose parameter bag of a submission into the typed
// record for t and validates it. Unknown keys are ignored.
func BindParams(t Type, raw map[string]string) (Params, error) {
	get := func(k string) string { return strings.TrimSpace(raw[k]) }

	var p Params
	switch t {
	case TypeOneWayANOVA:
		p = OneWayANOVAParams{Factor: get("factor"), DependentVar: get("dependentVar")}
	case TypeTwoWayANOVA:
		p = TwoWayANOVAParams{Factor1: get("factor1"), Factor2: get("factor2"), DependentVar: get("dependentVar")}
	case TypeTTest:
		p = TTestParams{TestType: get("testType"), Variables: SplitList(get("variables"))}
	case TypeCorrelation, TypeRegression:
		p = RelationshipParams{DependentVar: get("dependentVar"), IndependentVars: SplitList(get("independentVars"))}
	default:
		p = GeneralParams{Variables: SplitList(get("variables"))}
	}

	if err := validate.Struct(p); err != nil {
		return nil, paramError(err)
	}
	return p, nil
}

func paramError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewError(KindInvalidParameter, "invalid parameters", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "min":
		return NewError(KindMissingRequiredField, fmt.Sprintf("parameter %q is required", fe.Field()), nil)
	case "oneof":
		return NewError(KindInvalidParameter,
			fmt.Sprintf("parameter %q must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")), nil)
	}
	return NewError(KindInvalidParameter, fmt.Sprintf("parameter %q is invalid", fe.Field()), nil)
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// DecodeRawParams parses the JSON-encoded additionalParams form field into a
// flat string map. Arrays become comma-separated lists; null values are dropped.
func DecodeRawParams(data string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(data) == "" {
		return out, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, NewError(KindInvalidParameter, "additionalParams must be a JSON object", err)
	}
	for k, v := range m {
		if s, ok := stringify(v); ok {
			out[k] = s
		}
	}
	return out, nil
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := stringify(item); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
