package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Default export file names.
const (
	DefaultInventoryFile   = "inventory_history.csv"
	DefaultFulfillmentFile = "fulfillment_log.csv"
)

// TimestampLayout is the ISO-8601 layout used in exported files.
const TimestampLayout = "2006-01-02T15:04:05"

var (
	inventoryHeader = []string{
		"timestamp", "item_id", "supplier_id", "quantity_on_hand",
		"restock_weight", "fulfillment_weight", "backlog_unfulfilled_qty",
	}
	fulfillmentHeader = []string{
		"order_id", "item_id", "supplier_id", "requested_qty", "previously_fulfilled",
		"newly_fulfilled", "success", "failure_reason", "timestamp",
	}
)

// ExportFiles names the output files of Export.
type ExportFiles struct {
	Dir         string
	Inventory   string
	Fulfillment string
}

// DefaultExportFiles writes both files into dir under their default names.
func DefaultExportFiles(dir string) ExportFiles {
	return ExportFiles{Dir: dir, Inventory: DefaultInventoryFile, Fulfillment: DefaultFulfillmentFile}
}

// Export writes the inventory history and the flushed fulfillment log as CSV.
// An empty buffer is skipped with a warning; it is not an error.
func (l *Log) Export(files ExportFiles) error {
	if files.Dir != "" {
		if err := os.MkdirAll(files.Dir, 0o750); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	if len(l.Inventory) == 0 {
		logrus.Warn("No inventory history to export.")
	} else {
		path := filepath.Join(files.Dir, files.Inventory)
		if err := writeFile(path, func(w io.Writer) error { return WriteInventoryCSV(w, l.Inventory) }); err != nil {
			return err
		}
		logrus.Infof("Inventory history exported to %s (%d rows)", path, len(l.Inventory))
	}

	if len(l.Fulfillments) == 0 {
		logrus.Warn("No fulfillment log to export.")
	} else {
		path := filepath.Join(files.Dir, files.Fulfillment)
		if err := writeFile(path, func(w io.Writer) error { return WriteFulfillmentCSV(w, l.Fulfillments) }); err != nil {
			return err
		}
		logrus.Infof("Fulfillment log exported to %s (%d rows)", path, len(l.Fulfillments))
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (retErr error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteInventoryCSV writes snapshot rows with a header line.
func WriteInventoryCSV(w io.Writer, rows []InventorySnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(inventoryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			formatTime(r.Timestamp),
			strconv.FormatInt(r.ItemID, 10),
			strconv.FormatInt(r.SupplierID, 10),
			strconv.FormatInt(r.QuantityOnHand, 10),
			formatFloat(r.RestockWeight),
			formatFloat(r.FulfillmentWeight),
			strconv.FormatInt(r.BacklogQty, 10),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFulfillmentCSV writes attempt records with a header line.
func WriteFulfillmentCSV(w io.Writer, rows []FulfillmentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fulfillmentHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			strconv.FormatInt(r.OrderID, 10),
			strconv.FormatInt(r.ItemID, 10),
			strconv.FormatInt(r.SupplierID, 10),
			strconv.FormatInt(r.RequestedQty, 10),
			strconv.FormatInt(r.PreviouslyFulfilled, 10),
			strconv.FormatInt(r.NewlyFulfilled, 10),
			strconv.FormatBool(r.Success),
			string(r.FailureReason),
			formatTime(r.Timestamp),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
