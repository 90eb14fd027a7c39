// Package normalize converts the heterogeneous report shapes the dashboard
// receives into the unified models.Report and models.FeedEntry types.
//
// Three record families are handled:
//
//   - social map pins from the social API (/api/map/reports), decoded from JSON
//     into SocialReport
//   - IVR call records from the ivr_reports and disaster_reports collections
//   - citizen app submissions from the reports collection
//
// Push-channel frames are decoded once by DecodeFrame into a RawPost tagged
// with its shape (FlatPost or NestedPost), so nothing past this package ever
// looks at optional nested fields.
//
// Every function here is total: a record that cannot be placed on a map is
// rejected with ok=false, never defaulted to 0,0. Severity is the only place
// the Low/Medium/High scale is derived from raw values.
package normalize
