package workload

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fedsched/metasim/resourcemanager"
)

var clusterSetupHeader = []string{"ClusterID", "Cluster", "Resource", "Speed", "Gwf"}

// ClusterRow is one cluster-setup entry together with its optional
// per-cluster GWF reference, kept separate from resourcemanager.ClusterInfo
// since the resource manager itself has no notion of an associated
// workload file.
type ClusterRow struct {
	resourcemanager.ClusterInfo
	Gwf string
}

// LoadClusterSetup parses a cluster-setup CSV: one row per provisionable
// site, with resource count and processing speed, and an optional Gwf
// column naming a workload file specific to that cluster.
func LoadClusterSetup(path string) ([]ClusterRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workload: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	// The Gwf column is optional: allow short rows and zero-fill the rest.
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("workload: %s: %w", path, err)
	}
	if err := checkClusterHeader(path, header); err != nil {
		return nil, err
	}

	var rows []ClusterRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("workload: %s: %w", path, err)
		}
		row, err := parseClusterRow(path, record)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func checkClusterHeader(path string, header []string) error {
	for i, want := range clusterSetupHeader {
		if i >= len(header) || strings.TrimSpace(header[i]) != want {
			return fmt.Errorf("workload: %s: expected column %d to be %q", path, i, want)
		}
	}
	return nil
}

func parseClusterRow(path string, record []string) (ClusterRow, error) {
	var row ClusterRow
	get := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	row.ClusterID = get(0)

	nprocs, err := strconv.ParseInt(get(2), 10, 64)
	if err != nil {
		return row, fmt.Errorf("workload: %s: bad Resource for cluster %q: %w", path, row.ClusterID, err)
	}
	row.NProcs = nprocs

	speed := 1.0
	if raw := get(3); raw != "" {
		speed, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return row, fmt.Errorf("workload: %s: bad Speed for cluster %q: %w", path, row.ClusterID, err)
		}
	}
	row.ResourceSpeed = speed

	row.Gwf = get(4)
	return row, nil
}

// Load resolves the per-cluster GWF precedence rule: when defaultGWF is
// non-empty, it is loaded as the sole workload and every per-cluster Gwf
// column is ignored; otherwise each distinct per-cluster Gwf path named in
// rows is loaded and its tasks merged into one Workload. Grounded on
// original_source/core/SystemSim.py's setup, which applies this same
// override before ever looking at individual cluster rows.
func Load(rows []ClusterRow, defaultGWF string) (*Workload, error) {
	if defaultGWF != "" {
		return LoadPath(defaultGWF)
	}

	seen := make(map[string]bool)
	var files []string
	for _, row := range rows {
		if row.Gwf == "" || seen[row.Gwf] {
			continue
		}
		seen[row.Gwf] = true

		expanded, err := expandPath(row.Gwf)
		if err != nil {
			return nil, err
		}
		files = append(files, expanded...)
	}
	return loadFiles(files)
}
