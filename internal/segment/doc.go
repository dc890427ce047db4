// Package segment splits audio signals into bounded chunks for recognition.
// It implements silence-based segmentation over windowed RMS energy and
// fixed-duration windowing with overlap for arbitrary file transcription.
package segment
