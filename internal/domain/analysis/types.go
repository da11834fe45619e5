package analysis

import "strings"

// Type identifies the statistical analysis a report is framed around.
type Type string

const (
	TypeDescriptive          Type = "descriptive"
	TypeTTest                Type = "t-test"
	TypeOneWayANOVA          Type = "one-way-anova"
	TypeTwoWayANOVA          Type = "two-way-anova"
	TypeCorrelation          Type = "correlation"
	TypeRegression           Type = "regression"
	TypeChiSquare            Type = "chi-square"
	TypeFactorAnalysis       Type = "factor-analysis"
	TypeClusterAnalysis      Type = "cluster-analysis"
	TypeTimeSeries           Type = "time-series"
	TypePCA                  Type = "pca"
	TypeDiscriminantAnalysis Type = "discriminant-analysis"
	TypeSurvivalAnalysis     Type = "survival-analysis"
	TypeMultivariateANOVA    Type = "multivariate-anova"
)

// TypeInfo is one entry of the analysis catalogue.
type TypeInfo struct {
	ID          Type   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalogue = []TypeInfo{
	{TypeDescriptive, "Descriptive Statistics", "Summarizes and describes the main features of a dataset, including measures of central tendency and variability."},
	{TypeTTest, "T-Test", "Compares the means of two groups to determine if they are significantly different from each other."},
	{TypeOneWayANOVA, "One-way ANOVA", "Analyzes the difference in means between three or more independent groups."},
	{TypeTwoWayANOVA, "Two-way ANOVA", "Examines the influence of two different categorical independent variables on one continuous dependent variable."},
	{TypeCorrelation, "Correlation Analysis", "Measures the strength and direction of the relationship between two variables."},
	{TypeRegression, "Regression Analysis", "Estimates the relationship between a dependent variable and one or more independent variables."},
	{TypeChiSquare, "Chi-Square Test", "Tests the independence of two categorical variables or goodness of fit."},
	{TypeFactorAnalysis, "Factor Analysis", "Reduces a large number of variables into fewer numbers of factors."},
	{TypeClusterAnalysis, "Cluster Analysis", "Groups similar objects into clusters, revealing underlying patterns in data."},
	{TypeTimeSeries, "Time Series Analysis", "Analyzes data points collected over time to identify trends, cycles, and seasonal patterns."},
	{TypePCA, "Principal Component Analysis", "Reduces the dimensionality of large datasets while preserving as much variability as possible."},
	{TypeDiscriminantAnalysis, "Discriminant Analysis", "Predicts group membership based on a set of continuous independent variables."},
	{TypeSurvivalAnalysis, "Survival Analysis", "Analyzes the expected duration of time until an event occurs."},
	{TypeMultivariateANOVA, "MANOVA", "Analyzes the effect of one or more independent variables on multiple dependent variables simultaneously."},
}

// Catalogue returns every supported analysis type in display order.
func Catalogue() []TypeInfo {
	out := make([]TypeInfo, len(catalogue))
	copy(out, catalogue)
	return out
}

// ParseType normalises s and reports whether it names a supported type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, info := range catalogue {
		if info.ID == t {
			return t, true
		}
	}
	return t, false
}

// Info returns the catalogue entry of t. Unknown types get a generic entry.
func (t Type) Info() TypeInfo {
	for _, info := range catalogue {
		if info.ID == t {
			return info
		}
	}
	return TypeInfo{ID: t, Name: string(t)}
}
