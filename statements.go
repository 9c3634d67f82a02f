package connmgr

import (
	"encoding/json"
	"fmt"

	"github.com/bganilkumar/ConnectionManager/types"
)

// DefaultTable is the table managed device records are persisted in.
const DefaultTable = "model"

// DeviceRecord is one persisted device row.
type DeviceRecord struct {
	// Serial is the device serial number, the primary key.
	Serial string

	// Params is the device parameter map, stored JSON-encoded in the
	// modelobj column.
	Params map[string]string

	// AdminUp reports whether the device is administratively up. Newly
	// inserted rows start administratively down.
	AdminUp bool
}

// encodeParams returns the JSON encoding of a device parameter map.
func encodeParams(params map[string]string) string {
	// A string-keyed string map always marshals.
	data, _ := json.Marshal(params)

	return string(data)
}

// decodeParams parses the JSON parameter map read from the modelobj column.
// An empty column yields a nil map.
func decodeParams(obj string) (map[string]string, error) {
	if obj == "" {
		return nil, nil
	}

	var params map[string]string
	if err := json.Unmarshal([]byte(obj), &params); err != nil {
		return nil, fmt.Errorf("connmgr: failed to decode device parameters: %w", err)
	}

	return params, nil
}

// insertStatement builds the INSERT creating a device row. New rows are
// created administratively down.
func (m *Manager) insertStatement(serial string, params map[string]string) types.Statement {
	return types.Statement{
		Kind:  types.KindInsert,
		Query: "INSERT INTO " + m.table + " (serialno, modelobj, isadminup) VALUES (?, ?, ?)",
		Args:  []any{serial, encodeParams(params), false},
	}
}

// updateStatement builds the UPDATE replacing a device's parameter map.
func (m *Manager) updateStatement(serial string, params map[string]string) types.Statement {
	return types.Statement{
		Kind:  types.KindUpdate,
		Query: "UPDATE " + m.table + " SET modelobj = ? WHERE serialno = ?",
		Args:  []any{encodeParams(params), serial},
	}
}

// deleteStatement builds the DELETE removing a device row.
func (m *Manager) deleteStatement(serial string) types.Statement {
	return types.Statement{
		Kind:  types.KindDelete,
		Query: "DELETE FROM " + m.table + " WHERE serialno = ?",
		Args:  []any{serial},
	}
}

// selectStatement builds the SELECT reading a device row.
func (m *Manager) selectStatement(serial string) types.Statement {
	return types.Statement{
		Kind:  types.KindSelect,
		Query: "SELECT serialno, modelobj, isadminup FROM " + m.table + " WHERE serialno = ?",
		Args:  []any{serial},
	}
}
