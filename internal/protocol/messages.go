// Package protocol holds the JSON vocabulary spoken by the translation service.
package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Message types.
const (
	TypeConnect = "connect"
	TypeChange  = "change"
	TypeVoice   = "voice"
	TypeStatus  = "status"
	TypePhrase  = "phrase"
	TypeSpeech  = "speech"
	TypeUsers   = "users"
	TypeEnd     = "end"
	TypeError   = "error"
	TypeEcho    = "echo"
)

// ConnectRequest joins a presentation.
type ConnectRequest struct {
	Type             string `json:"type"`
	PresentationCode string `json:"presentationCode"`
	LanguageCode     string `json:"languageCode"`
	Identifier       string `json:"identifier"`
	AccessKey        string `json:"accessKey,omitempty"`
}

// ChangeRequest switches the translation language.
type ChangeRequest struct {
	Type         string `json:"type"`
	LanguageCode string `json:"languageCode"`
}

// VoiceRequest turns synthesized speech on or off.
type VoiceRequest struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

func NewConnectRequest(sessionID, language, identifier, passcode string) ConnectRequest {
	return ConnectRequest{
		Type:             TypeConnect,
		PresentationCode: sessionID,
		LanguageCode:     language,
		Identifier:       identifier,
		AccessKey:        passcode,
	}
}

func NewChangeRequest(language string) ChangeRequest {
	return ChangeRequest{Type: TypeChange, LanguageCode: language}
}

func NewVoiceRequest(enabled bool) VoiceRequest {
	return VoiceRequest{Type: TypeVoice, Enabled: enabled}
}

// Encode marshals an outbound request.
func Encode(request any) ([]byte, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return payload, nil
}

// Inbound is a decoded server message. Only the field matching Type is set.
type Inbound struct {
	Type   string
	Status *StatusMessage
	Phrase *PhraseMessage
	Speech *SpeechMessage
	End    *EndMessage
	Error  *ErrorMessage
}

type StatusMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PhraseMessage struct {
	PhraseID       string `json:"phraseId"`
	SpeakerID      string `json:"speakerId"`
	Name           string `json:"name"`
	TranslatedText string `json:"translatedText"`
	IsFinal        bool   `json:"isFinal"`
}

type SpeechMessage struct {
	PhraseID          string `json:"phraseId"`
	SynthesizedSpeech struct {
		Data ByteArray `json:"data"`
	} `json:"synthesizedSpeech"`
}

type EndMessage struct {
	Message string `json:"message"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

var ErrMissingType = errors.New("message has no type")

// Decode parses one inbound frame. Unknown types decode to an Inbound with only Type set.
func Decode(payload []byte) (Inbound, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Inbound{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if envelope.Type == "" {
		return Inbound{}, ErrMissingType
	}

	in := Inbound{Type: envelope.Type}
	var target any
	switch envelope.Type {
	case TypeStatus:
		in.Status = &StatusMessage{}
		target = in.Status
	case TypePhrase:
		in.Phrase = &PhraseMessage{}
		target = in.Phrase
	case TypeSpeech:
		in.Speech = &SpeechMessage{}
		target = in.Speech
	case TypeEnd:
		in.End = &EndMessage{}
		target = in.End
	case TypeError:
		in.Error = &ErrorMessage{}
		target = in.Error
	default:
		return in, nil
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return Inbound{}, fmt.Errorf("failed to decode %s message: %w", envelope.Type, err)
	}
	return in, nil
}

// ByteArray accepts audio either as a JSON array of byte values or as a base64 string.
type ByteArray []byte

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = nil
		return nil
	}

	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("invalid base64 audio: %w", err)
		}
		*b = decoded
		return nil
	}

	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("invalid audio byte array: %w", err)
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("audio byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
