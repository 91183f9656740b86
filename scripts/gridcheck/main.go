// Command gridcheck audits a running timetable API: it fetches the conflict
// report and, for each class listed in a JSON file, checks how full the
// class's weekly grid is. Intended for cron or a deploy pipeline; exits
// non-zero when conflicts exist or a critical class is under-filled.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type classTarget struct {
	ClassID  string `json:"classId"`
	Critical bool   `json:"critical"`
}

type config struct {
	Classes []classTarget `json:"classes"`
}

type classReport struct {
	Target     classTarget
	SlotCount  int
	HasGrid    bool
	UnderFull  bool
	Error      error
	DurationMs time.Duration
}

func main() {
	var (
		base        string
		targetsPath string
		minSlots    int
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "Timetable API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "gridcheck", "classes.json"), "Path to JSON classes file")
	flag.IntVar(&minSlots, "min-slots", 15, "Minimum slot count before a class counts as under-filled")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}

	conflictCount, err := fetchConflictCount(client, base)
	if err != nil {
		log.Fatalf("failed to fetch conflicts: %v", err)
	}

	var reports []classReport
	breaking := 0
	for _, t := range targets {
		report := checkClass(client, base, t, minSlots)
		if (report.Error != nil || report.UnderFull || !report.HasGrid) && t.Critical {
			breaking++
		}
		reports = append(reports, report)
	}

	printReport(reports, conflictCount)

	if conflictCount > 0 || breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]classTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Classes) == 0 {
		return nil, fmt.Errorf("no classes defined in %s", path)
	}
	return cfg.Classes, nil
}

func fetchConflictCount(client *http.Client, base string) (int, error) {
	body, err := get(client, base, "/api/v1/timetables/conflicts")
	if err != nil {
		return 0, err
	}
	var envelope struct {
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, err
	}
	return envelope.Meta.Total, nil
}

func checkClass(client *http.Client, base string, tgt classTarget, minSlots int) classReport {
	report := classReport{Target: tgt}
	start := time.Now()
	body, err := get(client, base, "/api/v1/timetables/class/"+tgt.ClassID)
	report.DurationMs = time.Since(start)
	if err != nil {
		report.Error = err
		return report
	}

	var envelope struct {
		Data struct {
			TotalSlots  int  `json:"total_slots"`
			HasSchedule bool `json:"has_schedule"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		report.Error = err
		return report
	}

	report.SlotCount = envelope.Data.TotalSlots
	report.HasGrid = envelope.Data.HasSchedule
	report.UnderFull = envelope.Data.TotalSlots < minSlots
	return report
}

func get(client *http.Client, base, path string) ([]byte, error) {
	url := strings.TrimRight(base, "/") + path
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func printReport(reports []classReport, conflictCount int) {
	fmt.Println("Grid Check Report")
	fmt.Println("=================")
	fmt.Printf("Conflicts: %d\n", conflictCount)
	for _, report := range reports {
		status := "OK"
		switch {
		case report.Error != nil:
			status = "ERROR"
		case !report.HasGrid:
			status = "NO GRID"
		case report.UnderFull:
			status = "UNDER"
		}
		fmt.Printf("[%s] class %s\n", status, report.Target.ClassID)
		if report.Error != nil {
			fmt.Printf("  Error: %v\n", report.Error)
			continue
		}
		fmt.Printf("  Slots: %d/20 (%s) | Critical: %t\n", report.SlotCount, report.DurationMs, report.Target.Critical)
	}
}
