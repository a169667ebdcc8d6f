package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/raceline/typerace/text"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ChunkList is the JSON data type holding a game's text collection, it
// implements the driver.Valuer and sql.Scanner interfaces
type ChunkList []text.Chunk

func (c ChunkList) Collection() text.Collection {
	return text.Collection(c)
}

// Value return json value, implement driver.Valuer interface
func (c ChunkList) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	ba, err := c.MarshalJSON()
	return string(ba), err
}

// Scan scan value into the chunk list, implements sql.Scanner interface
func (c *ChunkList) Scan(val interface{}) error {
	var ba []byte
	switch v := val.(type) {
	case []byte:
		ba = v
	case string:
		ba = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", val))
	}
	t := make([]text.Chunk, 0)
	err := json.Unmarshal(ba, &t)
	*c = ChunkList(t)
	return err
}

// MarshalJSON to output non base64 encoded []byte
func (c ChunkList) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	t := ([]text.Chunk)(c)
	return json.Marshal(t)
}

// UnmarshalJSON to deserialize []byte
func (c *ChunkList) UnmarshalJSON(b []byte) error {
	t := make([]text.Chunk, 0)
	err := json.Unmarshal(b, &t)
	*c = ChunkList(t)
	return err
}

// GormDataType gorm common data type
func (c ChunkList) GormDataType() string {
	return "chunklist"
}

// GormDBDataType gorm db data type
func (ChunkList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "JSON"
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	}
	return ""
}
