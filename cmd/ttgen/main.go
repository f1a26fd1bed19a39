package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acadsync/timetable-api/internal/engine"
	"github.com/acadsync/timetable-api/pkg/export"
)

var (
	coursesPath     = "courses.csv"
	assignmentsPath = ""
	startTime       = "07:30"
	endTime         = "14:30"
	lectureMinutes  = 60
	labMinutes      = 120
	breakSpecs      []string
	workingDays     []string
	foldSaturday    = true
	maxRetries      = 10
	format          = "json"
	outPath         = ""
	title           = ""
	verbose         = false
)

func main() {
	log.SetFlags(log.Ltime)

	cmd := &cobra.Command{
		Use:   "ttgen",
		Short: "Offline timetable generator",
		Long: "Runs the timetable allocation engine against a course catalog CSV\n" +
			"and an optional faculty assignments JSON file, without a server.",
		Run: runGenerate,
	}

	cmd.Flags().StringVarP(&coursesPath, "courses", "c", coursesPath, "course catalog CSV file")
	cmd.Flags().StringVarP(&assignmentsPath, "assignments", "a", assignmentsPath, "faculty assignments JSON file")
	cmd.Flags().StringVar(&startTime, "start", startTime, "day start time (HH:MM)")
	cmd.Flags().StringVar(&endTime, "end", endTime, "day end time (HH:MM)")
	cmd.Flags().IntVar(&lectureMinutes, "lecture", lectureMinutes, "lecture duration in minutes")
	cmd.Flags().IntVar(&labMinutes, "lab", labMinutes, "lab duration in minutes")
	cmd.Flags().StringArrayVarP(&breakSpecs, "break", "b", nil, "break window, HH:MM-HH:MM[=Name], repeatable")
	cmd.Flags().StringSliceVarP(&workingDays, "days", "d", nil, "working days (default Monday..Saturday)")
	cmd.Flags().BoolVar(&foldSaturday, "fold-saturday", foldSaturday, "try to relocate Saturday work onto weekdays")
	cmd.Flags().IntVar(&maxRetries, "max-retries", maxRetries, "maximum allocation passes before giving up")
	cmd.Flags().StringVarP(&format, "format", "f", format, "output format: json, csv, or pdf")
	cmd.Flags().StringVarP(&outPath, "out", "o", outPath, "output file (stdout for json when omitted)")
	cmd.Flags().StringVar(&title, "title", title, "sheet title for csv and pdf output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", verbose, "log engine decisions")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		log.Fatalf("unknown option: %s", strings.Join(args, " "))
	}

	logr := zap.NewNop()
	if verbose {
		var err error
		if logr, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("init logger: %v", err)
		}
	}

	courses, err := loadCourses(coursesPath)
	if err != nil {
		log.Fatalf("load courses: %v", err)
	}
	assignments, err := loadAssignments(assignmentsPath)
	if err != nil {
		log.Fatalf("load assignments: %v", err)
	}

	breaks, err := parseBreaks(breakSpecs)
	if err != nil {
		log.Fatalf("parse breaks: %v", err)
	}

	state, err := engine.BuildLayout(engine.LayoutParams{
		StartTime:      startTime,
		EndTime:        endTime,
		Breaks:         breaks,
		LectureMinutes: lectureMinutes,
		LabMinutes:     labMinutes,
		WorkingDays:    workingDays,
	})
	if err != nil {
		log.Fatalf("build layout: %v", err)
	}

	policy := engine.DefaultPolicy()
	if maxRetries > 0 {
		policy.MaxRetries = maxRetries
	}

	needs := engine.BuildNeeds(courses, assignments, logr)
	result, err := engine.New(policy, foldSaturday, logr).Run(state.Layout, state.Grid, needs)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}

	for _, conflict := range result.Conflicts {
		log.Printf("conflict: %s (%s) %s: %s", conflict.CourseName, conflict.FacultyName, conflict.Type, conflict.Reason)
	}

	if err := writeResult(result); err != nil {
		log.Fatalf("write output: %v", err)
	}
	log.Printf("done: %d passes, %d conflicts", result.Passes, len(result.Conflicts))
}

func loadCourses(path string) ([]engine.CourseRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var courses []engine.CourseRecord
	if err := gocsv.Unmarshal(f, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func loadAssignments(path string) ([]engine.AssignmentRecord, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var assignments []engine.AssignmentRecord
	if err := json.Unmarshal(raw, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// parseBreaks accepts windows of the form HH:MM-HH:MM or HH:MM-HH:MM=Name.
func parseBreaks(specs []string) ([]engine.BreakWindow, error) {
	breaks := make([]engine.BreakWindow, 0, len(specs))
	for _, spec := range specs {
		name := "Break"
		window := spec
		if idx := strings.IndexByte(spec, '='); idx >= 0 {
			window = spec[:idx]
			if trimmed := strings.TrimSpace(spec[idx+1:]); trimmed != "" {
				name = trimmed
			}
		}
		parts := strings.Split(window, "-")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid break %q, expected HH:MM-HH:MM[=Name]", spec)
		}
		breaks = append(breaks, engine.BreakWindow{
			Start: strings.TrimSpace(parts[0]),
			End:   strings.TrimSpace(parts[1]),
			Name:  name,
		})
	}
	return breaks, nil
}

func writeResult(result *engine.Result) error {
	switch format {
	case "json":
		payload, err := json.MarshalIndent(map[string]interface{}{
			"grid":            result.Compact,
			"conflicts":       result.Conflicts,
			"passes":          result.Passes,
			"saturday_folded": result.SaturdayFolded,
		}, "", "  ")
		if err != nil {
			return err
		}
		payload = append(payload, '\n')
		if outPath == "" {
			_, err = os.Stdout.Write(payload)
			return err
		}
		return os.WriteFile(outPath, payload, 0o644)

	case "csv", "pdf":
		if outPath == "" {
			return fmt.Errorf("%s output requires --out", format)
		}
		sheet := sheetFromResult(result)
		var rendered []byte
		var err error
		if format == "csv" {
			rendered, err = export.NewCSVExporter().Render(sheet)
		} else {
			rendered, err = export.NewPDFExporter().Render(sheet)
		}
		if err != nil {
			return err
		}
		return os.WriteFile(outPath, rendered, 0o644)

	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func sheetFromResult(result *engine.Result) export.Sheet {
	sheet := export.Sheet{
		Days:   result.Layout.Days,
		Slots:  result.Layout.SlotLabels(),
		Cells:  make(map[string]map[string]string, len(result.Layout.Days)),
		Titled: title,
	}
	for _, day := range result.Layout.Days {
		row := make(map[string]string, len(result.Layout.TimeSlots))
		for _, slot := range result.Layout.TimeSlots {
			row[slot.Label()] = renderCell(result.Grid.CellAt(day, slot.Label()))
		}
		sheet.Cells[day] = row
	}
	return sheet
}

func renderCell(cell *engine.Cell) string {
	if cell == nil {
		return "-"
	}
	switch cell.Kind {
	case engine.CellBreak:
		return cell.BreakName
	case engine.CellOccupied:
		parts := make([]string, 0, len(cell.Activities))
		for _, act := range cell.Activities {
			parts = append(parts, act.Display)
		}
		return strings.Join(parts, " / ")
	default:
		return "-"
	}
}
