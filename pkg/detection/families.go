package detection

import (
	"sort"

	"gocv.io/x/gocv"
)

// families maps family names to OpenCV predefined dictionaries.
// AprilTag names follow the apriltag library ("tag36h11"), ArUco names
// follow OpenCV's DICT_* suffixes in lower case.
var families = map[string]gocv.ArucoDictionaryCode{
	"tag16h5":  gocv.ArucoDictAprilTag_16h5,
	"tag25h9":  gocv.ArucoDictAprilTag_25h9,
	"tag36h10": gocv.ArucoDictAprilTag_36h10,
	"tag36h11": gocv.ArucoDictAprilTag_36h11,

	"aruco_original": gocv.ArucoDictArucoOriginal,

	"4x4_50":   gocv.ArucoDict4x4_50,
	"4x4_100":  gocv.ArucoDict4x4_100,
	"4x4_250":  gocv.ArucoDict4x4_250,
	"4x4_1000": gocv.ArucoDict4x4_1000,
	"5x5_50":   gocv.ArucoDict5x5_50,
	"5x5_100":  gocv.ArucoDict5x5_100,
	"5x5_250":  gocv.ArucoDict5x5_250,
	"5x5_1000": gocv.ArucoDict5x5_1000,
	"6x6_50":   gocv.ArucoDict6x6_50,
	"6x6_100":  gocv.ArucoDict6x6_100,
	"6x6_250":  gocv.ArucoDict6x6_250,
	"6x6_1000": gocv.ArucoDict6x6_1000,
	"7x7_50":   gocv.ArucoDict7x7_50,
	"7x7_100":  gocv.ArucoDict7x7_100,
	"7x7_250":  gocv.ArucoDict7x7_250,
	"7x7_1000": gocv.ArucoDict7x7_1000,
}

// Families returns the supported family names in sorted order.
func Families() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dictionary returns the OpenCV dictionary code for a family name.
func Dictionary(family string) (gocv.ArucoDictionaryCode, bool) {
	code, ok := families[family]
	return code, ok
}
