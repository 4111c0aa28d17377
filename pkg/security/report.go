package security

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"time"
)

// Summary counts findings by severity.
type Summary struct {
	HighSeverity    int `json:"high_severity" toon:"high_severity"`
	MediumSeverity  int `json:"medium_severity" toon:"medium_severity"`
	LowSeverity     int `json:"low_severity" toon:"low_severity"`
	TotalIssues     int `json:"total_issues" toon:"total_issues"`
	FilesScanned    int `json:"files_scanned" toon:"files_scanned"`
	FilesWithIssues int `json:"files_with_issues" toon:"files_with_issues"`
}

// Vulnerability is one Bandit finding.
type Vulnerability struct {
	FilePath        string `json:"file_path" toon:"file_path"`
	RelativePath    string `json:"relative_path" toon:"relative_path"`
	LineNumber      int    `json:"line_number" toon:"line_number"`
	IssueSeverity   string `json:"issue_severity" toon:"issue_severity"`
	IssueConfidence string `json:"issue_confidence" toon:"issue_confidence"`
	TestName        string `json:"test_name" toon:"test_name"`
	IssueText       string `json:"issue_text" toon:"issue_text"`
	Code            string `json:"code" toon:"code"`
	MoreInfo        string `json:"more_info" toon:"more_info"`
}

// Metadata describes the scan.
type Metadata struct {
	ScannedDirectory string `json:"scanned_directory" toon:"scanned_directory"`
	ScanTime         string `json:"scan_time" toon:"scan_time"`
	BanditVersion    string `json:"bandit_version" toon:"bandit_version"`
}

// Report is the normalized scan result.
type Report struct {
	Summary         Summary         `json:"summary" toon:"summary"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities" toon:"vulnerabilities"`
	Metadata        Metadata        `json:"metadata" toon:"metadata"`
}

type banditResult struct {
	Filename        string `json:"filename"`
	LineNumber      int    `json:"line_number"`
	IssueSeverity   string `json:"issue_severity"`
	IssueConfidence string `json:"issue_confidence"`
	TestName        string `json:"test_name"`
	IssueText       string `json:"issue_text"`
	Code            string `json:"code"`
	MoreInfo        string `json:"more_info"`
}

type banditReport struct {
	Version string `json:"version"`
	Metrics struct {
		Totals map[string]float64 `json:"_totals"`
	} `json:"metrics"`
	Results []banditResult `json:"results"`
}

var severityOrder = map[string]int{"HIGH": 0, "MEDIUM": 1, "LOW": 2, "UNKNOWN": 3}

func severityRank(s string) int {
	if r, ok := severityOrder[s]; ok {
		return r
	}
	return 99
}

// ParseReport normalizes a raw Bandit JSON report. Vulnerabilities are
// ordered HIGH, MEDIUM, LOW, UNKNOWN, keeping Bandit's order within a level.
func ParseReport(raw []byte, dir string, scannedAt time.Time) (*Report, error) {
	var br banditReport
	if err := json.Unmarshal(raw, &br); err != nil {
		return nil, fmt.Errorf("failed to parse Bandit report: %w", err)
	}

	totals := br.Metrics.Totals
	r := &Report{
		Summary: Summary{
			HighSeverity:   int(totals["SEVERITY.HIGH"]),
			MediumSeverity: int(totals["SEVERITY.MEDIUM"]),
			LowSeverity:    int(totals["SEVERITY.LOW"]),
			FilesScanned:   int(totals["loc"]),
		},
		Vulnerabilities: make([]Vulnerability, 0, len(br.Results)),
		Metadata: Metadata{
			ScannedDirectory: dir,
			ScanTime:         scannedAt.Format(time.RFC3339),
			BanditVersion:    or(br.Version, "unknown"),
		},
	}
	r.Summary.TotalIssues = r.Summary.HighSeverity + r.Summary.MediumSeverity + r.Summary.LowSeverity

	files := make(map[string]struct{})
	for _, res := range br.Results {
		path := or(res.Filename, "unknown")
		files[path] = struct{}{}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		r.Vulnerabilities = append(r.Vulnerabilities, Vulnerability{
			FilePath:        path,
			RelativePath:    rel,
			LineNumber:      res.LineNumber,
			IssueSeverity:   or(res.IssueSeverity, "UNKNOWN"),
			IssueConfidence: or(res.IssueConfidence, "UNKNOWN"),
			TestName:        or(res.TestName, "Unknown Test"),
			IssueText:       res.IssueText,
			Code:            res.Code,
			MoreInfo:        res.MoreInfo,
		})
	}
	r.Summary.FilesWithIssues = len(files)

	slices.SortStableFunc(r.Vulnerabilities, func(a, b Vulnerability) int {
		return severityRank(a.IssueSeverity) - severityRank(b.IssueSeverity)
	})
	return r, nil
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
