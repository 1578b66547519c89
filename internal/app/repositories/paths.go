package repositories

import "fmt"

// Document layout. Students are partitioned by (department, year level);
// representative assignments by (year level, department). Graduates are keyed
// by joining year plus the original student id so re-archival can never
// collide with an earlier cohort.
const (
	settingsYearPath      = "settings/academic_year"
	graduatesCollection   = "graduates"
	profilesCollection    = "profiles"
	departmentsCollection = "departments"
)

func studentCollection(dept string, level int) string {
	return fmt.Sprintf("students/%s/level-%d", dept, level)
}

func studentPath(dept string, level int, id string) string {
	return fmt.Sprintf("%s/%s", studentCollection(dept, level), id)
}

func graduatePath(joiningYear int, studentID string) string {
	return fmt.Sprintf("%s/%d_%s", graduatesCollection, joiningYear, studentID)
}

func assignmentCollection(level int, dept string) string {
	return fmt.Sprintf("representatives/level-%d/%s", level, dept)
}

func assignmentPath(level int, dept, id string) string {
	return fmt.Sprintf("%s/%s", assignmentCollection(level, dept), id)
}

// The legacy shape nests both slots of a partition inside one document.
func legacyAssignmentPath(dept string, level int) string {
	return fmt.Sprintf("departments/%s/representatives/level-%d", dept, level)
}

func profilePath(accountID string) string {
	return fmt.Sprintf("%s/%s", profilesCollection, accountID)
}

func departmentPath(code string) string {
	return fmt.Sprintf("%s/%s", departmentsCollection, code)
}
