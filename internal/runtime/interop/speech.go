package interop

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// SpeechToText is one audio chunk of a transcription conversation. Seq orders
// chunks within a conversation; several can be in flight at once.
type SpeechToText struct {
	ConversationID uuid.UUID `cbor:"conversation_id"`
	Seq            int       `cbor:"seq"`
	Samples        []float32 `cbor:"samples"`
	Finalize       bool      `cbor:"finalize"`
}

// SpeechToTextRequest is a SpeechToText chunk addressed for the broker: Beam
// names where the transcriber should publish its response.
type SpeechToTextRequest struct {
	ConversationID uuid.UUID `cbor:"conversation_id"`
	Seq            int       `cbor:"seq"`
	Samples        []float32 `cbor:"samples"`
	Finalize       bool      `cbor:"finalize"`
	Beam           string    `cbor:"beam"`
}

// NewSpeechRequest addresses a chunk with the reply beam the bridge listens
// on.
func NewSpeechRequest(stt SpeechToText, replyBeam string) SpeechToTextRequest {
	return SpeechToTextRequest{
		ConversationID: stt.ConversationID,
		Seq:            stt.Seq,
		Samples:        stt.Samples,
		Finalize:       stt.Finalize,
		Beam:           replyBeam,
	}
}

// SpeechToTextResponse is the transcription of one chunk.
type SpeechToTextResponse struct {
	ConversationID uuid.UUID `cbor:"conversation_id"`
	Seq            int       `cbor:"seq"`
	Text           string    `cbor:"text"`
	Finalized      bool      `cbor:"finalized"`
}

// Audio payloads are CBOR rather than JSON purely for size; nothing else in
// the protocol depends on the encoding.

// EncodeSpeechRequest serializes a request as CBOR.
func EncodeSpeechRequest(req SpeechToTextRequest) ([]byte, error) {
	return cbor.Marshal(req)
}

// DecodeSpeechRequest parses a CBOR request payload.
func DecodeSpeechRequest(payload []byte) (SpeechToTextRequest, error) {
	var req SpeechToTextRequest
	err := cbor.Unmarshal(payload, &req)
	return req, err
}

// EncodeSpeechResponse serializes a response as CBOR.
func EncodeSpeechResponse(resp SpeechToTextResponse) ([]byte, error) {
	return cbor.Marshal(resp)
}

// DecodeSpeechResponse parses a CBOR response payload.
func DecodeSpeechResponse(payload []byte) (SpeechToTextResponse, error) {
	var resp SpeechToTextResponse
	err := cbor.Unmarshal(payload, &resp)
	return resp, err
}
