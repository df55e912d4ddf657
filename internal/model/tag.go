package model

// Tag 标签表，对应 tags（通过 parent_id 组织为树）
type Tag struct {
	ID       uint   `gorm:"primaryKey"                            json:"id"`
	Name     string `gorm:"type:varchar(64);not null;uniqueIndex" json:"name"`
	ParentID *uint  `gorm:"index"                                 json:"parent_id,omitempty"`
}

// TableName 指定表名
func (Tag) TableName() string { return "tags" }
