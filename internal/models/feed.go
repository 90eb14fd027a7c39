package models

import "time"

// FeedEntry is one flattened push-channel post held in the live feed buffer.
type FeedEntry struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	IsDisaster   bool      `json:"is_disaster"`
	DisasterType *string   `json:"disaster_type,omitempty"`
	Severity     *Severity `json:"severity,omitempty"`
	Confidence   *float64  `json:"confidence,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// FeedPost is the full social feed post returned by the feed browsing endpoints.
type FeedPost struct {
	ID        string            `json:"id"`
	Platform  string            `json:"platform"`
	Content   FeedPostContent   `json:"content"`
	Author    FeedAuthor        `json:"author"`
	Analysis  FeedAnalysis      `json:"analysis"`
	Location  *FeedPostLocation `json:"location"`
	Timestamp string            `json:"timestamp"`
	Language  string            `json:"language"`
}

type FeedPostContent struct {
	Text      string   `json:"text,omitempty"`
	Headline  string   `json:"headline,omitempty"`
	Title     string   `json:"title,omitempty"`
	Hashtags  []string `json:"hashtags"`
	MediaURLs []string `json:"media_urls"`
}

type FeedAuthor struct {
	Name        string  `json:"name"`
	Handle      string  `json:"handle"`
	AvatarURL   *string `json:"avatar_url"`
	Verified    bool    `json:"verified"`
	Followers   int     `json:"followers"`
	AccountType string  `json:"account_type"`
}

type FeedAnalysis struct {
	IsDisaster       bool    `json:"is_disaster"`
	DisasterType     *string `json:"disaster_type"`
	Confidence       float64 `json:"confidence"`
	Urgency          string  `json:"urgency"`
	Sentiment        string  `json:"sentiment"`
	CredibilityScore float64 `json:"credibility_score"`
}

type FeedPostLocation struct {
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	State *string `json:"state"`
}

type TrendingHashtag struct {
	Hashtag string `json:"hashtag"`
	Count   int    `json:"count"`
}
