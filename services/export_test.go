package services

import "gorm.io/gorm"

// SetBeforeLockHook lets tests act between an automatic table pick and its row lock.
func (s *BookingService) SetBeforeLockHook(fn func(tx *gorm.DB, tableID uint)) {
	s.beforeLock = fn
}
