package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateActiveSessionKey holds the id of the candidate's in-progress session
func (r *CacheKeyStruct) CandidateActiveSessionKey(candidateRef string) string {
	return fmt.Sprintf("candidate:%s:active_session", candidateRef)
}

// ReportKey returns the cache key for a generated report
func (r *CacheKeyStruct) ReportKey(reportID string) string {
	return fmt.Sprintf("report:%s", reportID)
}

// SessionMonitorChannel returns the Redis PubSub channel name for a session's live monitor
func (r *CacheKeyStruct) SessionMonitorChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:monitor", sessionID)
}

var CacheKey = NewCacheKeyStruct()
