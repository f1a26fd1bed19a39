package engine

import (
	"strings"

	"go.uber.org/zap"
)

// allDivisions marks a booking that blocks every division at once. Lectures
// always book it; labs book only their own division.
const allDivisions = "ALL"

// CourseRecord is one row of the course catalog.
type CourseRecord struct {
	Name           string  `json:"name" csv:"name"`
	Code           string  `json:"code" csv:"code"`
	Credits        int     `json:"credits" csv:"credits"`
	TheoryHours    int     `json:"theory_hours" csv:"theory_hours"`
	TutorialHours  int     `json:"tutorial_hours" csv:"tutorial_hours"`
	PracticalHours float64 `json:"practical_hours" csv:"practical_hours"`
}

// ConstraintPin fixes an activity to an exact day and slot. Type narrows the
// pin to "lecture" or "lab" tasks; when empty the pin matches either.
type ConstraintPin struct {
	Day  string `json:"day"`
	Slot string `json:"slot"`
	Type string `json:"type,omitempty"`
}

// AssignmentRecord pairs a course with its faculty. The theory and practical
// flags declare which side of the course this faculty covers, so a split
// course never double-counts its hours. A record with neither flag carries no
// demand and is dropped.
type AssignmentRecord struct {
	CourseName string          `json:"course_name"`
	Faculty    string          `json:"faculty_name"`
	Theory     bool            `json:"theory"`
	Practical  bool            `json:"practical"`
	Divisions  []string        `json:"divisions"`
	NumSublabs int             `json:"number_of_sublabs,omitempty"`
	Protected  bool            `json:"protected"`
	Pins       []ConstraintPin `json:"constraints"`
}

// CourseNeed is a joined catalog row and assignment, the unit of demand fed
// into the allocator.
type CourseNeed struct {
	Course     CourseRecord
	Faculty    string
	Theory     bool
	Practical  bool
	Divisions  []string
	NumSublabs int
	Protected  bool
	Pins       []ConstraintPin
}

// NeedsLectures reports whether this faculty owes the course lecture hours.
func (n CourseNeed) NeedsLectures() bool {
	return n.Theory && n.Course.TheoryHours > 0
}

// NeedsLabs reports whether this faculty owes the course lab time.
func (n CourseNeed) NeedsLabs() bool {
	return n.Practical && (n.Course.TutorialHours > 0 || n.Course.PracticalHours > 0)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BuildNeeds joins assignments against the catalog by normalized course name.
// Assignments without a catalog row, with a blank course or faculty name, or
// with neither the theory nor the practical flag are logged and skipped
// rather than failing the run. Divisions and sublab counts only apply to
// practical bindings.
func BuildNeeds(courses []CourseRecord, assignments []AssignmentRecord, log *zap.Logger) []CourseNeed {
	if log == nil {
		log = zap.NewNop()
	}

	byName := make(map[string]CourseRecord, len(courses))
	for _, c := range courses {
		if strings.TrimSpace(c.Name) == "" {
			log.Warn("skipping catalog row with empty course name")
			continue
		}
		byName[normalizeName(c.Name)] = c
	}

	needs := make([]CourseNeed, 0, len(assignments))
	for _, a := range assignments {
		courseName := strings.TrimSpace(a.CourseName)
		faculty := strings.TrimSpace(a.Faculty)
		if courseName == "" || faculty == "" {
			log.Warn("skipping assignment with missing names",
				zap.String("course", a.CourseName),
				zap.String("faculty", a.Faculty))
			continue
		}
		if !a.Theory && !a.Practical {
			log.Warn("skipping assignment with neither theory nor practical flag",
				zap.String("course", courseName),
				zap.String("faculty", faculty))
			continue
		}
		course, ok := byName[normalizeName(courseName)]
		if !ok {
			log.Warn("skipping assignment for unknown course",
				zap.String("course", courseName),
				zap.String("faculty", faculty))
			continue
		}
		var divisions []string
		sublabs := 0
		if a.Practical {
			divisions = make([]string, 0, len(a.Divisions))
			for _, d := range a.Divisions {
				if trimmed := strings.TrimSpace(d); trimmed != "" {
					divisions = append(divisions, trimmed)
				}
			}
			sublabs = a.NumSublabs
		}
		needs = append(needs, CourseNeed{
			Course:     course,
			Faculty:    faculty,
			Theory:     a.Theory,
			Practical:  a.Practical,
			Divisions:  divisions,
			NumSublabs: sublabs,
			Protected:  a.Protected,
			Pins:       a.Pins,
		})
	}
	return needs
}

// Task is a single placement request derived from a need: one lecture hour
// or one lab block. Constrained tasks carry the need's full pin list and scan
// it in order at placement time.
type Task struct {
	Need     CourseNeed
	Type     ActivityType
	Division string
	Pins     []ConstraintPin
	BlockLen int
}

// ExpandTasks flattens needs into the ordered task list the allocator
// consumes. Lab demand expands to ceil(weekly lab minutes / lab session
// minutes) sessions, at least one per division, assigned round-robin so
// every division gets its share.
func ExpandTasks(needs []CourseNeed, layout Layout) []Task {
	var tasks []Task
	for _, need := range needs {
		if need.NeedsLectures() {
			for i := 0; i < need.Course.TheoryHours; i++ {
				tasks = append(tasks, Task{
					Need: need,
					Type: ActivityLecture,
					Pins: need.Pins,
				})
			}
		}

		if need.NeedsLabs() && layout.LabMinutes > 0 {
			weeklyMinutes := float64(need.Course.TutorialHours)*60 + need.Course.PracticalHours*60
			sessions := int((weeklyMinutes + float64(layout.LabMinutes) - 1) / float64(layout.LabMinutes))
			if sessions < len(need.Divisions) {
				sessions = len(need.Divisions)
			}
			if sessions < 1 {
				sessions = 1
			}
			blockLen := layout.LabSlots
			if blockLen < 1 {
				blockLen = 1
			}
			divisions := need.Divisions
			if len(divisions) == 0 {
				divisions = []string{allDivisions}
			}
			for i := 0; i < sessions; i++ {
				tasks = append(tasks, Task{
					Need:     need,
					Type:     ActivityLab,
					Division: divisions[i%len(divisions)],
					Pins:     need.Pins,
					BlockLen: blockLen,
				})
			}
		}
	}
	return tasks
}
