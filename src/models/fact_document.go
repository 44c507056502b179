package models

import (
	"time"

	"gorm.io/datatypes"
)

// FactDocument 知识库事实条目（MacBook Air产品资料）
// Embedding 以JSON数组存储向量，检索时在内存中做余弦相似度计算。
type FactDocument struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Metadata  datatypes.JSON `gorm:"type:json" json:"metadata"`
	Embedding datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

func (FactDocument) TableName() string { return "fact_documents" }
