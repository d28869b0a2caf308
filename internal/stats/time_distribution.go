package stats

import "time"

// TimeDistribution tracks min, max, mean, total and count of duration samples.
type TimeDistribution struct {
	label
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// NewTimeDistribution creates a distribution with no samples.
func NewTimeDistribution(key, context string) *TimeDistribution {
	return &TimeDistribution{label: label{key: key, context: context}}
}

// Update folds one sample into the summary. Negative samples are accepted as-is.
func (d *TimeDistribution) Update(sample time.Duration) {
	if d.count == 0 {
		d.min = sample
		d.max = sample
	} else {
		if sample < d.min {
			d.min = sample
		}
		if sample > d.max {
			d.max = sample
		}
	}
	d.total += sample
	d.count++
}

// Count returns the number of samples seen.
func (d *TimeDistribution) Count() int64 {
	return d.count
}

// Total returns the sum of all samples.
func (d *TimeDistribution) Total() time.Duration {
	return d.total
}

// Min returns the smallest sample; ok is false while there are no samples.
func (d *TimeDistribution) Min() (min time.Duration, ok bool) {
	return d.min, d.count > 0
}

// Max returns the largest sample; ok is false while there are no samples.
func (d *TimeDistribution) Max() (max time.Duration, ok bool) {
	return d.max, d.count > 0
}

// Mean returns the average sample; ok is false while there are no samples.
func (d *TimeDistribution) Mean() (mean time.Duration, ok bool) {
	if d.count == 0 {
		return 0, false
	}
	return d.total / time.Duration(d.count), true
}

// Summary is a point-in-time view of a distribution, in seconds.
type Summary struct {
	Count int64
	Min   float64
	Max   float64
	Avg   float64
	Sum   float64
}

// Summary returns the distribution in seconds; ok is false while there are
// no samples, in which case only Count is meaningful.
func (d *TimeDistribution) Summary() (Summary, bool) {
	s := Summary{Count: d.count, Sum: d.total.Seconds()}
	if d.count == 0 {
		return s, false
	}
	s.Min = d.min.Seconds()
	s.Max = d.max.Seconds()
	s.Avg = s.Sum / float64(d.count)
	return s, true
}

func (*TimeDistribution) producer() {}
