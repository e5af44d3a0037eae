// Package workload loads task and cluster-catalog definitions from CSV
// files in the spirit of the Grid Workloads Format, and resolves dependency
// edges and workflow grouping across however many files are loaded
// together.
package workload

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fedsched/metasim/model"
)

// gwfHeader is the required column order of a workload CSV. Grounded on
// spec.md §6; ported from the reader pattern in
// inference-sim-inference-sim's sim/workload/tracev2.go (csv.Reader +
// explicit column indexing rather than struct tags, since encoding/csv has
// no tag-based decoder).
var gwfHeader = []string{"WorkflowID", "JobID", "SubmitTime", "RunTime", "NProcs", "ReqNProcs", "Dependencies"}

// Workload is every task and workflow loaded from one or more files, with
// ids already made globally unique across files.
type Workload struct {
	Tasks     map[int64]*model.Task
	Workflows map[int64]*model.Workflow
}

// LoadPath loads a single workload CSV, or every *.csv file found directly
// inside a directory (sorted by name, for a deterministic load order
// independent of the host filesystem's directory iteration order). Task
// and workflow ids that collide across files are disambiguated by assigning
// each file a monotonic id-offset base, per spec.md §6.
func LoadPath(path string) (*Workload, error) {
	files, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	return loadFiles(files)
}

// expandPath resolves path to the list of CSV files it names: itself if
// it's a file, or every *.csv directly inside it (sorted for a
// deterministic load order) if it's a directory.
func expandPath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("workload: %w", err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("workload: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// loadFiles merges the given workload files in order, assigning each a
// monotonic id-offset base so ids never collide across files regardless of
// how many files or calls are involved.
func loadFiles(files []string) (*Workload, error) {
	wl := &Workload{Tasks: map[int64]*model.Task{}, Workflows: map[int64]*model.Workflow{}}
	var taskOffset, workflowOffset int64
	for _, f := range files {
		tasks, workflows, nextTaskOffset, nextWorkflowOffset, err := loadFile(f, taskOffset, workflowOffset)
		if err != nil {
			return nil, err
		}
		for id, t := range tasks {
			wl.Tasks[id] = t
		}
		for id, w := range workflows {
			wl.Workflows[id] = w
		}
		taskOffset, workflowOffset = nextTaskOffset, nextWorkflowOffset
	}

	linkChildren(wl.Tasks)
	if err := checkAcyclic(wl.Tasks); err != nil {
		return nil, err
	}
	return wl, nil
}

// checkAcyclic reports an error if the combined task set contains a
// dependency cycle, detected as TopoSortTasks failing to order every task
// (a cycle leaves its members permanently blocked, so they never become
// ready).
func checkAcyclic(tasks map[int64]*model.Task) error {
	all := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		all = append(all, t)
	}
	order := model.TopoSortTasks(all)
	if len(order) != len(tasks) {
		return fmt.Errorf("workload: dependency cycle detected among %d tasks", len(tasks)-len(order))
	}
	return nil
}

// rawRow is one parsed CSV line before ids are offset or dependencies are
// resolved against the rest of the file.
type rawRow struct {
	workflowID int64
	hasWF      bool
	jobID      int64
	submit     int64
	runtime    int64
	nprocs     int64
	reqNprocs  int64
	deps       []int64
}

func loadFile(path string, taskOffset, workflowOffset int64) (map[int64]*model.Task, map[int64]*model.Workflow, int64, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("workload: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("workload: %s: %w", path, err)
	}
	if err := checkHeader(path, header); err != nil {
		return nil, nil, 0, 0, err
	}

	var rows []rawRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, 0, 0, fmt.Errorf("workload: %s: %w", path, err)
		}
		row, err := parseRow(path, record)
		if err != nil {
			return nil, nil, 0, 0, err
		}
		rows = append(rows, row)
	}

	return buildTasks(rows, taskOffset, workflowOffset)
}

func checkHeader(path string, header []string) error {
	if len(header) != len(gwfHeader) {
		return fmt.Errorf("workload: %s: expected %d columns, got %d", path, len(gwfHeader), len(header))
	}
	for i, want := range gwfHeader {
		if strings.TrimSpace(header[i]) != want {
			return fmt.Errorf("workload: %s: expected column %d to be %q, got %q", path, i, want, header[i])
		}
	}
	return nil
}

func parseRow(path string, record []string) (rawRow, error) {
	var row rawRow

	if wf := strings.TrimSpace(record[0]); wf != "" {
		id, err := strconv.ParseInt(wf, 10, 64)
		if err != nil {
			return row, fmt.Errorf("workload: %s: bad WorkflowID %q: %w", path, wf, err)
		}
		row.workflowID = id
		row.hasWF = true
	}

	jobID, err := strconv.ParseInt(strings.TrimSpace(record[1]), 10, 64)
	if err != nil {
		return row, fmt.Errorf("workload: %s: bad JobID %q: %w", path, record[1], err)
	}
	row.jobID = jobID

	submit, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
	if err != nil {
		return row, fmt.Errorf("workload: %s: bad SubmitTime %q: %w", path, record[2], err)
	}
	if submit < 0 {
		return row, fmt.Errorf("workload: %s: negative SubmitTime for job %d", path, jobID)
	}
	row.submit = submit

	runtime, err := strconv.ParseInt(strings.TrimSpace(record[3]), 10, 64)
	if err != nil {
		return row, fmt.Errorf("workload: %s: bad RunTime %q: %w", path, record[3], err)
	}
	if runtime < 0 {
		return row, fmt.Errorf("workload: %s: negative RunTime for job %d", path, jobID)
	}
	row.runtime = runtime

	row.nprocs, _ = strconv.ParseInt(strings.TrimSpace(record[4]), 10, 64)
	row.reqNprocs, _ = strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)

	if deps := strings.TrimSpace(record[6]); deps != "" {
		for _, tok := range strings.Fields(deps) {
			id, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return row, fmt.Errorf("workload: %s: bad dependency id %q for job %d: %w", path, tok, jobID, err)
			}
			row.deps = append(row.deps, id)
		}
	}

	return row, nil
}

// buildTasks converts this file's rows into Tasks and Workflows with
// globally-unique ids, offset past whatever the previous file consumed. CPU
// demand prefers ReqNProcs (the request) and falls back to NProcs (the
// historical allocation) when the request is non-positive, which the Grid
// Workloads Format uses as its "unknown" sentinel.
func buildTasks(rows []rawRow, taskOffset, workflowOffset int64) (map[int64]*model.Task, map[int64]*model.Workflow, int64, int64, error) {
	tasks := make(map[int64]*model.Task, len(rows))
	workflowTaskIDs := make(map[int64][]int64)

	localToGlobal := make(map[int64]int64, len(rows))
	for _, row := range rows {
		localToGlobal[row.jobID] = row.jobID + taskOffset
	}

	var maxTaskID, maxWorkflowID int64

	for _, row := range rows {
		cpus := row.reqNprocs
		if cpus <= 0 {
			cpus = row.nprocs
		}

		workflowID := int64(-1)
		if row.hasWF {
			workflowID = row.workflowID + workflowOffset
			if workflowID+1 > maxWorkflowID {
				maxWorkflowID = workflowID + 1
			}
		}

		deps := make(map[int64]struct{}, len(row.deps))
		for _, d := range row.deps {
			global, ok := localToGlobal[d]
			if !ok {
				return nil, nil, 0, 0, fmt.Errorf("workload: job %d depends on unknown job %d", row.jobID, d)
			}
			deps[global] = struct{}{}
		}

		globalID := localToGlobal[row.jobID]
		tasks[globalID] = model.NewTask(globalID, workflowID, row.submit, row.runtime, cpus, deps)

		if globalID+1 > maxTaskID {
			maxTaskID = globalID + 1
		}
		if row.hasWF {
			workflowTaskIDs[workflowID] = append(workflowTaskIDs[workflowID], globalID)
		}
	}

	workflows := make(map[int64]*model.Workflow, len(workflowTaskIDs))
	for id, taskIDs := range workflowTaskIDs {
		sort.Slice(taskIDs, func(i, j int) bool { return taskIDs[i] < taskIDs[j] })
		w := model.NewWorkflow(id, taskIDs)
		w.TsSubmit = earliestSubmit(taskIDs, tasks)
		workflows[id] = w
		w.CriticalPathLength, w.CriticalPathTaskCount = model.CriticalPath(taskIDs, tasks)
	}

	return tasks, workflows, maxTaskID, maxWorkflowID, nil
}

func earliestSubmit(taskIDs []int64, tasks map[int64]*model.Task) int64 {
	var min int64
	first := true
	for _, id := range taskIDs {
		t := tasks[id]
		if first || t.TsSubmit < min {
			min = t.TsSubmit
			first = false
		}
	}
	return min
}

// linkChildren populates every task's Children slice from the reverse of
// its Dependencies, across the whole loaded set — dependency edges can
// point at tasks from an earlier file once ids are made global, so this
// runs once per LoadPath call rather than per file.
func linkChildren(tasks map[int64]*model.Task) {
	ids := make([]int64, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		t := tasks[id]
		for parentID := range t.Dependencies {
			if parent, ok := tasks[parentID]; ok {
				parent.Children = append(parent.Children, t.ID)
			}
		}
	}
}
