package services

import (
	"sort"
	"sync"

	"github.com/mertcan/gradus/internal/app/models"
)

// Services defined in this package:
// - YearClock: the process-wide academic year with load/promote semantics
// - PromotionService: orchestrates a full promotion run
// - ArchivalService: archives the terminal-level cohort
// - MigrationService: moves students one level at a time
// - CRMigrationService: moves representative records in lock-step
// - RepresentativeService: the slot assignment state machine

// forEachDepartment runs fn once per department concurrently. Partitions are
// disjoint, so department work never interleaves on shared documents. The
// returned slice names the departments whose fn failed, sorted for stable
// reporting.
func forEachDepartment(departments []*models.Department, fn func(dept string) error) []string {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)

	for _, d := range departments {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			if err := fn(code); err != nil {
				mu.Lock()
				failed = append(failed, code)
				mu.Unlock()
			}
		}(d.Code)
	}

	wg.Wait()
	sort.Strings(failed)
	return failed
}
