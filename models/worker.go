package models

import (
	"time"

	"github.com/yeremiapane/local-talent/utils"
	"gorm.io/gorm"
)

type Worker struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	Skill      string    `gorm:"type:varchar(100);not null;index" json:"skill"`
	City       string    `gorm:"type:varchar(100);not null;index" json:"city"`
	Experience *int      `gorm:"column:experience" json:"experience"`
	Phone      string    `gorm:"type:varchar(20);not null" json:"phone"`
	IsWoman    bool      `gorm:"column:is_woman;not null;default:false" json:"is_woman"`
	CreatedAt  time.Time `json:"created_at"`

	// Exp is the display label the directory pages read, e.g. "5 years".
	Exp string `gorm:"-" json:"exp"`
}

func (w *Worker) AfterFind(tx *gorm.DB) error {
	w.Exp = utils.FormatExperience(w.Experience)
	return nil
}

func (w *Worker) AfterCreate(tx *gorm.DB) error {
	w.Exp = utils.FormatExperience(w.Experience)
	return nil
}
