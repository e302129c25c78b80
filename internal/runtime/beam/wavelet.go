package beam

import (
	errspkg "github.com/luminet/beamline/internal/runtime/errors"
)

// Photon is one message instance: a beam plus an opaque serialized payload.
// Payload encoding is chosen per message kind (JSON for control traffic, CBOR
// for audio chunks) and is not interpreted here.
type Photon struct {
	Beam    string
	Payload []byte
}

// Wavelet is a batch of payloads delivered together under one beam in a
// single dispatch tick. Holding one beam for the whole batch makes the
// shared-beam invariant structural rather than checked per photon.
type Wavelet struct {
	Beam     string
	Payloads [][]byte
}

// NewWavelet builds a single-photon wavelet.
func NewWavelet(beamName string, payload []byte) Wavelet {
	return Wavelet{Beam: beamName, Payloads: [][]byte{payload}}
}

// Merge combines photons into one wavelet. All photons must name the same
// beam; mixing beams returns ErrMixedBeams.
func Merge(photons ...Photon) (Wavelet, error) {
	if len(photons) == 0 {
		return Wavelet{}, errspkg.ErrBeamRequired
	}
	w := Wavelet{Beam: photons[0].Beam, Payloads: make([][]byte, 0, len(photons))}
	for _, p := range photons {
		if p.Beam != w.Beam {
			return Wavelet{}, errspkg.ErrMixedBeams
		}
		w.Payloads = append(w.Payloads, p.Payload)
	}
	return w, nil
}

// Photons expands the wavelet back into individual envelopes.
func (w Wavelet) Photons() []Photon {
	out := make([]Photon, len(w.Payloads))
	for i, p := range w.Payloads {
		out[i] = Photon{Beam: w.Beam, Payload: p}
	}
	return out
}

// Len reports the number of payloads batched in the wavelet.
func (w Wavelet) Len() int {
	return len(w.Payloads)
}
