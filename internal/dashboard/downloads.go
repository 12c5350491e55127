package dashboard

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ZipName is the file name of the Download ALL archive.
const ZipName = "markmentum_downloads.zip"

// CatalogEntry is one file offered on the Downloads page.
type CatalogEntry struct {
	File    string
	Title   string
	OutName string
}

// Catalog is the fixed list of nightly exports, in display order.
var Catalog = []CatalogEntry{
	{"stat_box.csv", "Stat Box", "stat_box.csv"},
	{"signal_box.csv", "Signal Box", "signal_box.csv"},
	{"qry_graph_data_01.csv", "Probable Ranges", "Probable Ranges.csv"},
	{"qry_graph_data_02.csv", "Trend Lines", "Trend Lines.csv"},
	{"qry_graph_data_03.csv", "Probable Anchors", "Probable Anchors.csv"},
	{"qry_graph_data_04.csv", "Price to LT Probable Anchor", "Price to LT Probable Anchor.csv"},
	{"qry_graph_data_05.csv", "30-Day Rvol Z-Score", "30-Day Rvol Z-Score.csv"},
	{"qry_graph_data_06.csv", "Z-Score Percentile Rank", "Z-Score Percentile Rank.csv"},
	{"qry_graph_data_07.csv", "Rvol 30-Day", "Rvol 30-Day.csv"},
	{"qry_graph_data_08.csv", "30-Day Sharpe Ratio", "30-Day Sharpe Ratio.csv"},
	{"qry_graph_data_09.csv", "Sharpe Ratio Percentile Rank", "Sharpe Ratio Percentile Rank.csv"},
	{"qry_graph_data_10.csv", "IVol Prem/Disc", "IVol Prem-Disc.csv"},
	{"qry_graph_data_11.csv", "MM Score", "MM Score.csv"},
	{"qry_graph_data_12.csv", "IVol/RVol % Spreads", "IVol-RVol % Spreads.csv"},
	{"qry_graph_data_13.csv", "Daily Returns", "Daily Returns.csv"},
	{"qry_graph_data_14.csv", "Daily Range", "Daily Range.csv"},
	{"qry_graph_data_15.csv", "Daily Volume", "Daily Volume.csv"},
	{"qry_graph_data_16.csv", "Weekly Returns", "Weekly Returns.csv"},
	{"qry_graph_data_17.csv", "Weekly Range", "Weekly Range.csv"},
	{"qry_graph_data_18.csv", "Weekly Volume", "Weekly Volume.csv"},
	{"qry_graph_data_19.csv", "Monthly Returns", "Monthly Returns.csv"},
	{"qry_graph_data_20.csv", "Monthly Range", "Monthly Range.csv"},
	{"qry_graph_data_21.csv", "Monthly Volume", "Monthly Volume.csv"},
	{"qry_graph_data_22.csv", "Short-Term Trend Line", "Short-Term Trend Line.csv"},
	{"qry_graph_data_23.csv", "Mid-Term Trend Line", "Mid-Term Trend Line.csv"},
	{"qry_graph_data_24.csv", "Long-Term Trend Line", "Long-Term Trend Line.csv"},
}

// Download is a catalog entry resolved against the export directory.
type Download struct {
	CatalogEntry
	Path      string
	Size      int64
	Updated   string
	Available bool
}

// HumanSize renders a byte count the way the Downloads page shows it.
func HumanSize(n int64, ok bool) string {
	if !ok {
		return "—"
	}
	f := float64(n)
	for _, u := range []string{"B", "KB", "MB", "GB", "TB"} {
		if f < 1024 {
			return fmt.Sprintf("%.0f %s", f, u)
		}
		f /= 1024
	}
	return fmt.Sprintf("%.0f PB", f)
}

// SizeLabel is HumanSize for a resolved download.
func (d Download) SizeLabel() string {
	return HumanSize(d.Size, d.Available)
}

// Downloads resolves the catalog, plus any files matching the extra glob
// patterns, against dir. Updated dates are rendered in loc.
func Downloads(dir string, loc *time.Location, extraPatterns []string) ([]Download, error) {
	if loc == nil {
		loc = time.UTC
	}
	entries := append([]CatalogEntry(nil), Catalog...)
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.File] = true
	}

	fsys := os.DirFS(dir)
	for _, pattern := range extraPatterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid download pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if known[m] {
				continue
			}
			known[m] = true
			base := path.Base(m)
			entries = append(entries, CatalogEntry{
				File:    m,
				Title:   strings.TrimSuffix(base, path.Ext(base)),
				OutName: base,
			})
		}
	}

	out := make([]Download, 0, len(entries))
	for _, e := range entries {
		d := Download{CatalogEntry: e, Path: filepath.Join(dir, filepath.FromSlash(e.File))}
		fi, err := os.Stat(d.Path)
		switch {
		case err == nil && !fi.IsDir():
			d.Available = true
			d.Size = fi.Size()
			d.Updated = fi.ModTime().In(loc).Format("2006-01-02")
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to stat %s: %w", e.File, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Lookup finds an available download by its catalog file name.
func Lookup(items []Download, file string) (Download, bool) {
	for _, d := range items {
		if d.File == file && d.Available {
			return d, true
		}
	}
	return Download{}, false
}

// AnyAvailable reports whether at least one export exists.
func AnyAvailable(items []Download) bool {
	for _, d := range items {
		if d.Available {
			return true
		}
	}
	return false
}

// WriteZip streams every available download into a deflated zip archive
// under its output name.
func WriteZip(w io.Writer, items []Download) error {
	zw := zip.NewWriter(w)
	for _, d := range items {
		if !d.Available {
			continue
		}
		if err := addZipFile(zw, d); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addZipFile(zw *zip.Writer, d Download) error {
	f, err := os.Open(d.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", d.File, err)
	}
	defer f.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{Name: d.OutName, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", d.OutName, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", d.OutName, err)
	}
	return nil
}
