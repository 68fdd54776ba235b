package gormstorage

import (
	"time"

	"gorm.io/datatypes"
)

// TimelineRecord is a recorded session.
type TimelineRecord struct {
	ID              uint   `gorm:"primarykey"`
	Session         string `gorm:"uniqueIndex;size:255;not null"`
	Start           float64
	End             float64
	LengthMs        int64
	DetailTimeoutMs int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Markers []MarkerRecord `gorm:"foreignKey:TimelineID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the default table name.
func (TimelineRecord) TableName() string { return "timelines" }

// MarkerRecord is one marker of a session. Metadata holds whatever extra
// fields the recorder attached and is not interpreted here.
type MarkerRecord struct {
	ID          uint   `gorm:"primarykey"`
	TimelineID  uint   `gorm:"index;not null"`
	UUID        string `gorm:"index;size:36;not null"`
	Position    float64
	Name        string `gorm:"size:255"`
	Description string
	Importance  string `gorm:"size:16"`
	Metadata    datatypes.JSON
	UpdatedAt   time.Time
}

// TableName overrides the default table name.
func (MarkerRecord) TableName() string { return "markers" }

// Models lists the tables to migrate.
var Models = []any{&TimelineRecord{}, &MarkerRecord{}}
