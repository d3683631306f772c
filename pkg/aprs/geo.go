package aprs

import (
	"fmt"
	"math"
	"strings"
)

// Distance returns the great-circle distance in statute miles between two
// fixes given in decimal degrees.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}
	theta := degToRad(lng1 - lng2)
	d := math.Sin(degToRad(lat1))*math.Sin(degToRad(lat2)) +
		math.Cos(degToRad(lat1))*math.Cos(degToRad(lat2))*math.Cos(theta)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return radToDeg(math.Acos(d)) * 60 * 1.1515
}

// Speed returns the ground speed in miles per hour implied by covering dist
// miles in diff seconds. Sub-second intervals are clamped to one second so a
// zero denominator cannot occur.
func Speed(dist float64, diff int64) float64 {
	if diff < 1 {
		diff = 1
	}
	return dist / (float64(diff) / 3600.0)
}

var compassDirs = [4]string{"north", "east", "south", "west"}

// DirectionByCourse buckets a course in degrees into one of 16 compass
// labels ("north", "north-east", ...). Cardinal buckets return one word,
// intermediate buckets a hyphenated pair.
func DirectionByCourse(course int) string {
	rounded := int(float64(course)/22.5) % 16
	if rounded%4 == 0 {
		return compassDirs[rounded/4]
	}
	primary := compassDirs[2*(((rounded/4)+1)%4/2)]
	secondary := compassDirs[1+2*(rounded/8)]
	return primary + "-" + secondary
}

// CompassImage rewrites a rotatable icon image into its course-dependent
// variant under the compass/ subpath: ("icons", "abc.png", 90) yields
// "icons/compass/abc-east.png".
func CompassImage(path, image string, course int) string {
	base := strings.Replace(image, ".png", "", 1)
	return fmt.Sprintf("%s/compass/%s-%s.png", path, base, DirectionByCourse(course))
}

// Maidenhead returns the 4-character grid locator for a fix, upper-cased
// (e.g. 34.1167,-118.2 is "DM04").
func Maidenhead(lat, lng float64) string {
	lng += 180
	lat += 90
	if lng < 0 || lng >= 360 || lat < 0 || lat >= 180 {
		return ""
	}
	return string([]byte{
		'A' + byte(int(lng/20)),
		'A' + byte(int(lat/10)),
		'0' + byte(int(math.Mod(lng, 20)/2)),
		'0' + byte(int(math.Mod(lat, 10))),
	})
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }
