package specification

import "gorm.io/gorm"

type ByUserName struct {
	UserName string
}

func (s ByUserName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_name = ?", s.UserName)
}

type ByFileID struct {
	FileID string
}

func (s ByFileID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("file_id = ?", s.FileID)
}

type ByFilePath struct {
	FilePath string
}

func (s ByFilePath) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("file_path = ?", s.FilePath)
}

// ChunkOrder keeps chunks in document order.
type ChunkOrder struct{}

func (ChunkOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
