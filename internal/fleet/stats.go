package fleet

// Stats is a read-time summary of the fleet. It is never stored.
type Stats struct {
	Online  int
	Total   int
	Average float64 // mean over online devices, 0 when none are online
	Min     float64 // coldest online device, 0 when none are online
	Max     float64 // warmest online device, 0 when none are online
}

// OnlineCount returns the number of online devices.
func OnlineCount(devices []Device) int {
	n := 0
	for _, d := range devices {
		if d.Online() {
			n++
		}
	}
	return n
}

// AverageTemp returns the mean temperature of online devices, or exactly 0
// when no device is online.
func AverageTemp(devices []Device) float64 {
	sum := 0.0
	n := 0
	for _, d := range devices {
		if d.Online() {
			sum += d.Temp
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Summarize computes all fleet aggregates in one pass.
func Summarize(devices []Device) Stats {
	st := Stats{Total: len(devices)}
	sum := 0.0
	for _, d := range devices {
		if !d.Online() {
			continue
		}
		if st.Online == 0 || d.Temp < st.Min {
			st.Min = d.Temp
		}
		if st.Online == 0 || d.Temp > st.Max {
			st.Max = d.Temp
		}
		sum += d.Temp
		st.Online++
	}
	if st.Online > 0 {
		st.Average = sum / float64(st.Online)
	}
	return st
}
