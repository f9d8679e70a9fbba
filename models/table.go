package models

import "time"

// TableType is the floor-plan icon of a table.
type TableType string

const (
	TableTypeSingle     TableType = "1"
	TableTypeTwoHoriz   TableType = "2_horiz"
	TableTypeTwoVert    TableType = "2_vert"
	TableTypeFour       TableType = "4"
	TableTypeSix        TableType = "6"
	DefaultTableType              = TableTypeFour
)

// TableTypes lists every table type in display order.
var TableTypes = []TableType{
	TableTypeSingle,
	TableTypeTwoHoriz,
	TableTypeTwoVert,
	TableTypeFour,
	TableTypeSix,
}

// ParseTableType reports whether code is one of the known table types.
func ParseTableType(code string) (TableType, bool) {
	switch t := TableType(code); t {
	case TableTypeSingle, TableTypeTwoHoriz, TableTypeTwoVert, TableTypeFour, TableTypeSix:
		return t, true
	}
	return "", false
}

func (t TableType) Label() string {
	switch t {
	case TableTypeSingle:
		return "1 seat"
	case TableTypeTwoHoriz:
		return "2 seats (horiz)"
	case TableTypeTwoVert:
		return "2 seats (vert)"
	case TableTypeFour:
		return "4 seats"
	case TableTypeSix:
		return "6 seats"
	}
	return string(t)
}

type Table struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AreaID        uint      `gorm:"not null;uniqueIndex:idx_table_area_name" json:"area"`
	Area          Area      `gorm:"foreignKey:AreaID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Name          string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_table_area_name" json:"name"`
	Capacity      uint      `gorm:"not null" json:"capacity"`
	Type          TableType `gorm:"type:varchar(16);not null;default:'4'" json:"type"`
	X             float64   `gorm:"type:decimal(6,2);not null;default:0" json:"x"`
	Y             float64   `gorm:"type:decimal(6,2);not null;default:0" json:"y"`
	Photo         *string   `gorm:"type:varchar(255)" json:"-"`
	PhotoInactive *string   `gorm:"type:varchar(255)" json:"-"`
	IsActive      bool      `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time `gorm:"not null" json:"-"`
	UpdatedAt     time.Time `gorm:"not null" json:"-"`
}
