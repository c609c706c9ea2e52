package models

import "strings"

// stationValues maps station names to the option values of the portal's
// origin/destination selects.
var stationValues = map[string]string{
	"南港": "1", "nangang": "1",
	"台北": "2", "臺北": "2", "taipei": "2",
	"板橋": "3", "banqiao": "3",
	"桃園": "4", "taoyuan": "4",
	"新竹": "5", "hsinchu": "5",
	"苗栗": "6", "miaoli": "6",
	"台中": "7", "臺中": "7", "taichung": "7",
	"彰化": "8", "changhua": "8",
	"雲林": "9", "yunlin": "9",
	"嘉義": "10", "chiayi": "10",
	"台南": "11", "臺南": "11", "tainan": "11",
	"左營": "12", "高雄": "12", "zuoying": "12",
}

// StationValue resolves a station name (or an already-numeric value) to the
// portal option value.
func StationValue(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	if v, ok := stationValues[n]; ok {
		return v, true
	}
	for _, v := range stationValues {
		if v == n {
			return v, true
		}
	}
	return "", false
}

var stationNames = map[string]string{
	"1": "Nangang", "2": "Taipei", "3": "Banqiao", "4": "Taoyuan",
	"5": "Hsinchu", "6": "Miaoli", "7": "Taichung", "8": "Changhua",
	"9": "Yunlin", "10": "Chiayi", "11": "Tainan", "12": "Zuoying",
}

// StationName returns the romanized name of a station, or name unchanged when
// it is not a known station.
func StationName(name string) string {
	if v, ok := StationValue(name); ok {
		return stationNames[v]
	}
	return name
}
