// Package noaa implements queries to NOAA CO-OPS to retrieve observed high and
// low water levels. Data is requested per station and calendar date (see
// HighLowQuery). A successful query returns the list of extrema observed
// between that date and the following one, each labelled as a higher high,
// high, low or lower low. All times are GMT.
package noaa
