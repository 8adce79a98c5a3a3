package bench

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/justjake/querybench/pkg/bundle"
	"github.com/justjake/querybench/pkg/report"
	"github.com/justjake/querybench/pkg/stats"
)

// consolidate writes the statistics of this run, reads them back together
// with the reference statistics, copies the reference artifacts next to
// the current ones and bundles everything into a digested archive.
func (s *Session) consolidate(result *Result) error {
	statsPath := s.path(stats.FileName)
	doc := stats.NewDocument(s.ID, s.Specs, s.now(), s.Settings)
	if err := stats.Write(statsPath, doc); err != nil {
		return err
	}
	s.document = doc
	result.StatisticsFile = statsPath

	// Reading back validates what was written and fills timings of
	// scenarios that were not measured in this run.
	times, err := stats.Read(statsPath, s.Settings)
	if err != nil {
		return fmt.Errorf("read back %s: %w", statsPath, err)
	}
	for i, t := range times {
		s.Settings[i].SetExecutionTimes(t)
	}

	if err := s.loadReference(); err != nil {
		return err
	}
	s.copyReferenceCallgrind()

	return s.archive(result)
}

func (s *Session) loadReference() error {
	refDir := s.Config.RefStatisticsDir
	refPath := stats.FindStatistics(refDir)
	if refPath == "" {
		s.Logger.Warn("no reference statistics found", "dir", refDir)
		return nil
	}

	refDoc, err := stats.Load(refPath)
	if err != nil {
		return err
	}
	refTimes, err := refDoc.Validate(s.Settings)
	if err != nil {
		return fmt.Errorf("reference %s: %w", refPath, err)
	}
	for i, t := range refTimes {
		s.Settings[i].SetReferenceExecutionTimes(t)
	}
	s.reference = &refDoc.Header

	s.refFile = "ref_" + filepath.Base(refPath)
	if err := bundle.CopyFile(refPath, s.path(s.refFile)); err != nil {
		return fmt.Errorf("copy reference statistics: %w", err)
	}

	s.Logger.Info("loaded reference statistics",
		"path", refPath,
		"reference_session_id", refDoc.SessionID,
		"reference_timestamp", refDoc.Timestamp)
	return nil
}

func (s *Session) copyReferenceCallgrind() {
	for _, st := range s.Settings {
		src := filepath.Join(s.Config.RefStatisticsDir, st.CallgrindSVGFile())
		err := bundle.CopyFile(src, s.path(st.RefCallgrindSVGFile()))
		switch {
		case errors.Is(err, os.ErrNotExist):
			s.Logger.Warn("reference call graph missing", "query", st.Index, "path", src)
		case err != nil:
			s.Logger.Warn("failed to copy reference call graph", "query", st.Index, "error", err)
		}
	}
}

func (s *Session) archive(result *Result) error {
	names := []string{stats.FileName}
	for _, st := range s.Settings {
		names = append(names, st.CallgrindSVGFile())
	}

	archivePath := s.path(report.ArchiveFileName)
	included, err := bundle.Archive(s.Config.OutputDir, names, archivePath)
	if err != nil {
		return err
	}

	digestPath, sum, err := bundle.WriteDigest(archivePath)
	if err != nil {
		return err
	}

	result.ArchiveFile = archivePath
	result.DigestFile = digestPath
	result.Digest = sum

	s.Logger.Info("archived benchmark data",
		"path", archivePath,
		"files", len(included),
		"blake2b", sum)
	return nil
}
