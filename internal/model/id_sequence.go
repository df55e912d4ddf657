package model

// IDSequence 自定义编号的按日计数器，对应 id_sequences
// Scope 形如 "S-20261015"，Value 为当日已分配的最大序号
type IDSequence struct {
	Scope string `gorm:"type:varchar(32);primaryKey" json:"scope"`
	Value int64  `gorm:"not null;default:0"          json:"value"`
}

// TableName 指定表名
func (IDSequence) TableName() string { return "id_sequences" }
