// Package timeline derives the encoder manifest and the caption cues from one
// ordered asset list, so the two can never disagree on length or order.
package timeline
