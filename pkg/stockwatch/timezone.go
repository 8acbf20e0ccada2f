package stockwatch

import "time"

const shanghaiTimeZoneName = "Asia/Shanghai"

var shanghaiLocation = loadShanghaiLocation()

func loadShanghaiLocation() *time.Location {
	location, err := time.LoadLocation(shanghaiTimeZoneName)
	if err != nil {
		return time.FixedZone(shanghaiTimeZoneName, 8*60*60)
	}
	return location
}

// dayKey is the market calendar day of t, used to key the history cache.
func dayKey(t time.Time) string {
	return t.In(shanghaiLocation).Format("2006-01-02")
}
