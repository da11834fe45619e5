package analysis

// InputKind tells the presentation layer which widget renders a parameter.
type InputKind string

const (
	InputText   InputKind = "text"
	InputList   InputKind = "list" // comma-separated values
	InputSelect InputKind = "select"
)

// Field describes one named analysis parameter.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Input    InputKind `json:"inputKind"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// T-test sub-types.
const (
	TTestIndependent = "independent"
	TTestPaired      = "paired"
	TTestOneSample   = "one-sample"
)

var (
	fieldDependentVar = Field{Name: "dependentVar", Label: "Dependent Variable", Input: InputText, Required: true}
	fieldIndependent  = Field{Name: "independentVars", Label: "Independent Variable(s) (comma-separated)", Input: InputList, Required: true}

	defaultSchema = []Field{
		{Name: "variables", Label: "Variables to analyze (comma-separated)", Input: InputList},
	}

	schemas = map[Type][]Field{
		TypeOneWayANOVA: {
			{Name: "factor", Label: "Factor name", Input: InputText, Required: true},
			{Name: "dependentVar", Label: "Dependent Variable", Input: InputText},
		},
		TypeTwoWayANOVA: {
			{Name: "factor1", Label: "Factor 1 name", Input: InputText, Required: true},
			{Name: "factor2", Label: "Factor 2 name", Input: InputText, Required: true},
			{Name: "dependentVar", Label: "Dependent Variable", Input: InputText},
		},
		TypeTTest: {
			{Name: "testType", Label: "T-Test Type", Input: InputSelect, Required: true,
				Options: []string{TTestIndependent, TTestPaired, TTestOneSample}},
			{Name: "variables", Label: "Variable(s) (comma-separated)", Input: InputList, Required: true},
		},
		TypeCorrelation: {fieldDependentVar, fieldIndependent},
		TypeRegression:  {fieldDependentVar, fieldIndependent},
	}
)

// SchemaFor returns the ordered parameter fields for t. Types without a
// dedicated schema, registered or not, share the single free-text fallback.
func SchemaFor(t Type) []Field {
	fields, ok := schemas[t]
	if !ok {
		fields = defaultSchema
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}
