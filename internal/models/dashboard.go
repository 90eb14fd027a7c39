package models

type Stats struct {
	TotalReports          int `json:"total_reports"`
	CriticalAlerts        int `json:"critical_alerts"`
	ActiveSatelliteEvents int `json:"active_satellite_events"`
	SocialMediaPosts24h   int `json:"social_media_posts_24h"`
}

type Summary struct {
	TotalPosts       int            `json:"total_posts"`
	DisasterPosts    int            `json:"disaster_posts"`
	NonDisasterPosts int            `json:"non_disaster_posts"`
	ByType           map[string]int `json:"by_type"`
}

func EmptySummary() Summary {
	return Summary{ByType: map[string]int{}}
}
