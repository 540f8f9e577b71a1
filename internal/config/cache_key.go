package config

import "fmt"

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPaperKey returns the cache key for a published exam's student paper.
func (r *CacheKeyStruct) ExamPaperKey(examID string) string {
	return fmt.Sprintf("exam:%s:paper", examID)
}

// ExamEventsChannel returns the Redis PubSub channel carrying session
// lifecycle events for one exam's live monitor.
func (r *CacheKeyStruct) ExamEventsChannel(examID string) string {
	return fmt.Sprintf("exam:%s:events", examID)
}

var CacheKey = NewCacheKeyStruct()
