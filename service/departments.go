package service

import "strings"

const (
	// CityCenterDepartment handles otherwise unmatched reports located downtown.
	CityCenterDepartment = "City Center Services"
	// DefaultDepartment handles everything nothing else claims.
	DefaultDepartment = "General Services"

	cityCenterKeyword = "downtown"
)

type departmentRule struct {
	keyword    string
	department string
}

// departmentRules is scanned in order; the first keyword found in the category wins.
var departmentRules = []departmentRule{
	{"streetlight", "Electrical"},
	{"electric", "Electrical"},
	{"power", "Electrical"},
	{"pothole", "Public Works"},
	{"road", "Public Works"},
	{"sidewalk", "Public Works"},
	{"water", "Water & Sewer"},
	{"leak", "Water & Sewer"},
	{"sewer", "Water & Sewer"},
	{"drain", "Water & Sewer"},
	{"garbage", "Sanitation"},
	{"trash", "Sanitation"},
	{"litter", "Sanitation"},
	{"graffiti", "Parks & Recreation"},
	{"park", "Parks & Recreation"},
	{"tree", "Parks & Recreation"},
	{"traffic", "Transportation"},
	{"signal", "Transportation"},
	{"noise", "Public Safety"},
}

// AssignDepartment picks the department responsible for a report.
// The category is matched against the keyword table first, then the
// location is checked for the city center before falling back to the
// default department.
func AssignDepartment(category, location string) string {
	category = strings.ToLower(category)
	for _, rule := range departmentRules {
		if strings.Contains(category, rule.keyword) {
			return rule.department
		}
	}
	if strings.Contains(strings.ToLower(location), cityCenterKeyword) {
		return CityCenterDepartment
	}
	return DefaultDepartment
}

// Departments returns every department a report can be assigned to, in
// keyword table order followed by the fallbacks.
func Departments() []string {
	seen := make(map[string]bool, len(departmentRules)+2)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, rule := range departmentRules {
		add(rule.department)
	}
	add(CityCenterDepartment)
	add(DefaultDepartment)
	return out
}
