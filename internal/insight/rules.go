package insight

import (
	"context"
	"fmt"

	"github.com/joshsymonds/chronocadence/internal/aggregate"
	"github.com/joshsymonds/chronocadence/internal/timestamp"
)

// Thresholds used by the rule engine.
const (
	peakHourStrong      = 0.8
	peakHourModerate    = 0.6
	offHoursCaution     = 0.15
	weekdayConcentrated = 2.5
	questionHeavy       = 0.2
	digitHeavy          = 0.3
	longSubject         = 50
	shortSubject        = 15
	weekendHeavy        = 0.25
	freqLow             = 0.5
	freqModerate        = 1.5
	freqRegular         = 3
)

// RuleEngine evaluates fixed threshold rules in category order. It is deterministic:
// the same Input always yields the same List.
type RuleEngine struct{}

// NewRuleEngine returns the deterministic generator.
func NewRuleEngine() *RuleEngine { return &RuleEngine{} }

// Generate implements Generator. A rule whose data is missing is skipped; when every
// rule is skipped the DefaultList is returned.
func (e *RuleEngine) Generate(_ context.Context, in Input) List {
	b := newBuilder()
	if in.Bundle.Total > 0 {
		sendPatternRules(b, in)
		engagementRules(b, in)
		contentRules(b, in)
		relationshipRules(b, in)
		actionPlanRules(b, in)
	}
	return b.result()
}

func sendPatternRules(b *builder, in Input) {
	bundle := in.Bundle
	peak := bundle.PeakHour
	business := aggregate.IsBusinessHour(peak.Index)
	switch {
	case peak.Share > peakHourStrong && business:
		b.add(SendPattern,
			"%s of messages arrive at %02d:00; this sender keeps a fixed business-hours schedule.",
			pct(peak.Share), peak.Index)
	case peak.Share > peakHourStrong:
		b.add(SendPattern,
			"%s of messages arrive at %02d:00; this sender keeps a fixed schedule outside business hours.",
			pct(peak.Share), peak.Index)
	case peak.Share > peakHourModerate && business:
		b.add(SendPattern,
			"Sending clusters around %02d:00 (%s of messages) with some spread across the business day.",
			peak.Index, pct(peak.Share))
	case peak.Share > peakHourModerate:
		b.add(SendPattern,
			"Sending clusters around %02d:00 (%s of messages), outside business hours.",
			peak.Index, pct(peak.Share))
	default:
		b.add(SendPattern,
			"Send times are spread out; the busiest hour, %02d:00, carries %s of messages.",
			peak.Index, pct(peak.Share))
	}

	if bundle.OffHoursShare > offHoursCaution {
		b.add(SendPattern,
			"%s of messages arrive between 22:00 and 04:59; late sends are easily buried by morning mail.",
			pct(bundle.OffHoursShare))
	}

	day := timestamp.WeekdayName(bundle.PeakWeekday.Index)
	if ratio := weekdayConcentration(bundle); ratio > weekdayConcentrated {
		b.add(SendPattern,
			"%s carries %.1fx the average daily volume; sending is concentrated on one weekday.",
			day, ratio)
	}

	switch bundle.PeakWeekday.Index {
	case 1, 3:
		b.add(SendPattern,
			"Peak day is %s. Tuesday and Thursday sends are typically effective for engagement.", day)
	default:
		b.add(SendPattern,
			"Peak day is %s. Consider testing Tuesday or Thursday sends, which typically engage better.", day)
	}
}

// weekdayConcentration compares the peak weekday against an even spread over seven days.
func weekdayConcentration(bundle aggregate.Bundle) float64 {
	total := 0
	for _, c := range bundle.Weekday {
		total += c
	}
	if total == 0 {
		return 0
	}
	return float64(bundle.PeakWeekday.Count) / float64(total) * aggregate.DaysPerWeek
}

func engagementRules(b *builder, in Input) {
	if in.Subjects.Count > 0 {
		subjects := in.Subjects
		if subjects.QuestionRatio > questionHeavy {
			b.add(Engagement,
				"%s of subject lines ask a question, inviting the reader to respond.",
				pct(subjects.QuestionRatio))
		}
		if subjects.DigitRatio > digitHeavy {
			b.add(Engagement,
				"%s of subject lines contain numbers such as prices, dates or counts, which draw the eye.",
				pct(subjects.DigitRatio))
		}
		switch {
		case subjects.AvgLength > longSubject:
			b.add(Engagement,
				"Subject lines average %.0f characters and risk truncation on mobile clients.",
				subjects.AvgLength)
		case subjects.AvgLength < shortSubject:
			b.add(Engagement,
				"Subject lines are short (%.0f characters on average) and rely on the sender name for context.",
				subjects.AvgLength)
		}
	}
	if in.Bundle.WeekendShare > weekendHeavy {
		b.add(Engagement,
			"%s of messages land on weekends, when readers have more time but check mail less often.",
			pct(in.Bundle.WeekendShare))
	}
}

func contentRules(b *builder, in Input) {
	b.add(Content, "Lead with the single most important point in the first line.")
	b.add(Content, "Keep a consistent format so recurring messages are recognised at a glance.")
	if !in.Cadence.OK {
		return
	}
	perWeek := in.Cadence.PerWeek
	switch {
	case perWeek < freqLow:
		b.add(Content,
			"Low frequency (%.1f messages per week): each message should stand on its own.", perWeek)
	case perWeek < freqModerate:
		b.add(Content,
			"Moderate frequency (%.1f messages per week): a weekly rhythm suits this correspondent.", perWeek)
	case perWeek < freqRegular:
		b.add(Content,
			"Regular frequency (%.1f messages per week): vary content to avoid repetition.", perWeek)
	default:
		b.add(Content,
			"High frequency (%.1f messages per week): consider digests to reduce inbox fatigue.", perWeek)
	}
}

func relationshipRules(b *builder, in Input) {
	if normalizeDomain(in.Domain) == "" {
		return
	}
	class, _ := ClassifyDomain(in.Domain)
	switch class {
	case DomainCommercial:
		b.add(Relationship, "Commercial sender: messages are likely campaigns or transactional notices.")
		b.add(Relationship, "Watch for promotional cycles around month ends and seasonal sales.")
	case DomainEducational:
		b.add(Relationship, "Educational sender: expect announcements that follow the academic calendar.")
		b.add(Relationship, "Deadlines and schedule changes deserve prompt attention.")
	case DomainNonprofit:
		b.add(Relationship, "Nonprofit sender: messages typically cover campaigns, events and donation appeals.")
		b.add(Relationship, "Engagement here is driven by mission updates rather than offers.")
	default:
		b.add(Relationship, "Sender organisation type could not be determined from the domain.")
	}
}

func actionPlanRules(b *builder, in Input) {
	b.add(ActionPlan, "Set up a filter or label for this sender to keep related mail together.")
	b.add(ActionPlan, "Review the most recent messages for open requests or deadlines.")
	b.add(ActionPlan, "Re-run this analysis periodically to track changes in sending behaviour.")
	if IsFreeWebmail(in.Domain) {
		b.add(ActionPlan,
			"%s is a free webmail provider; confirm the sender's identity before acting on requests.",
			normalizeDomain(in.Domain))
	}
	if day, hour, count, ok := bestSlot(in.Bundle); ok {
		b.add(ActionPlan,
			"Best observed slot: %s %02d:00 (%d messages). Time replies and follow-ups around it.",
			timestamp.WeekdayName(day), hour, count)
	}
}

// bestSlot searches Monday-Friday x business hours of the joint matrix in row-major
// order, so ties resolve to the earliest weekday then the earliest hour.
func bestSlot(bundle aggregate.Bundle) (day, hour, count int, ok bool) {
	cells := make([]int, 0, aggregate.Saturday*(aggregate.BusinessEndHour-aggregate.BusinessStartHour+1))
	for d := 0; d < aggregate.Saturday; d++ {
		for h := aggregate.BusinessStartHour; h <= aggregate.BusinessEndHour; h++ {
			cells = append(cells, bundle.Joint[d][h])
		}
	}
	peak := aggregate.PeakOf(cells, bundle.Total)
	if peak.Count == 0 {
		return 0, 0, 0, false
	}
	width := aggregate.BusinessEndHour - aggregate.BusinessStartHour + 1
	return peak.Index / width, aggregate.BusinessStartHour + peak.Index%width, peak.Count, true
}

func pct(share float64) string {
	return fmt.Sprintf("%.0f%%", share*100)
}
