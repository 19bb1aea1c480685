package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// ReadTable 读取带表头的逗号分隔文件。
// 文件不存在时返回 SourceNotFoundError。
func ReadTable(path string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.NewSourceNotFoundError(path, err)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := DecodeTable(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// DecodeTable 从 reader 解析表格；第一行为表头。
func DecodeTable(r io.Reader) (*core.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0 // 以表头列数为准

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.NewInvalidInputError(core.ModuleStore, "empty table: missing header row")
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := &core.Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteScoredTable 把评分表写入 path，覆盖已有文件。
// 先写同目录下的临时文件再 rename，读取方不会看到写了一半的表。
func WriteScoredTable(path string, table *core.ScoredTable) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := EncodeScoredTable(tmp, table); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	// CreateTemp 使用 0600；评分表需要被其他用户的查询进程读取
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// EncodeScoredTable 以 CSV 写出评分表（表头 + 每客户一行）。
func EncodeScoredTable(w io.Writer, table *core.ScoredTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := cw.Write(row.Cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadScoredTable 读取已持久化的评分表，并校验查询所需的列。
func ReadScoredTable(path string) (*core.ScoredTable, error) {
	raw, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return ParseScoredTable(raw)
}

// ParseScoredTable 把原始表解析为评分表（CustomerId 为整数，churn_prob 为浮点数）。
func ParseScoredTable(raw *core.Table) (*core.ScoredTable, error) {
	var missing []string
	for _, col := range core.RequiredScoredColumns() {
		if raw.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, core.NewInvalidInputError(core.ModuleStore,
			"scored table is missing required columns: %s", strings.Join(missing, ", "))
	}

	idIdx := raw.ColumnIndex(core.ColCustomerID)
	probIdx := raw.ColumnIndex(core.ColChurnProb)
	rows := make([]core.ScoredRow, 0, len(raw.Rows))
	for i, cells := range raw.Rows {
		id, err := core.ParseCustomerID(strings.TrimSpace(cells[idIdx]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		prob, ok := conv.ParseFloat(cells[probIdx])
		if !ok || prob < 0 || prob > 1 {
			return nil, core.NewInvalidInputError(core.ModuleStore,
				"row %d: invalid %s %q", i+1, core.ColChurnProb, cells[probIdx])
		}
		rows = append(rows, core.ScoredRow{CustomerID: id, ChurnProb: prob, Cells: cells})
	}
	return &core.ScoredTable{Columns: raw.Columns, Rows: rows}, nil
}
