package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeConnectRequestOmitsEmptyAccessKey(t *testing.T) {
	t.Parallel()

	payload, err := Encode(NewConnectRequest("TEST-1234", "en", "secure-viewer-abc123", ""))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got := string(payload)
	if !strings.Contains(got, `"type":"connect"`) || !strings.Contains(got, `"presentationCode":"TEST-1234"`) {
		t.Fatalf("unexpected payload: %s", got)
	}
	if strings.Contains(got, "accessKey") {
		t.Fatalf("expected accessKey to be omitted: %s", got)
	}

	payload, err = Encode(NewConnectRequest("TEST-1234", "en", "id", "secret"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.Contains(string(payload), `"accessKey":"secret"`) {
		t.Fatalf("expected accessKey: %s", payload)
	}
}

func TestEncodeControlRequests(t *testing.T) {
	t.Parallel()

	payload, _ := Encode(NewChangeRequest("de"))
	if string(payload) != `{"type":"change","languageCode":"de"}` {
		t.Fatalf("unexpected change payload: %s", payload)
	}
	payload, _ = Encode(NewVoiceRequest(false))
	if string(payload) != `{"type":"voice","enabled":false}` {
		t.Fatalf("unexpected voice payload: %s", payload)
	}
}

func TestDecodePhrase(t *testing.T) {
	t.Parallel()

	in, err := Decode([]byte(`{"type":"phrase","phraseId":"1","speakerId":"s1","name":"Ana","translatedText":"Hello","isFinal":true}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if in.Type != TypePhrase || in.Phrase == nil {
		t.Fatalf("unexpected inbound: %+v", in)
	}
	if in.Phrase.PhraseID != "1" || in.Phrase.TranslatedText != "Hello" || !in.Phrase.IsFinal || in.Phrase.Name != "Ana" {
		t.Fatalf("unexpected phrase: %+v", in.Phrase)
	}
}

func TestDecodeSpeechByteArrayAndBase64(t *testing.T) {
	t.Parallel()

	in, err := Decode([]byte(`{"type":"speech","phraseId":"7","synthesizedSpeech":{"data":[82,73,70,70]}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(in.Speech.SynthesizedSpeech.Data) != "RIFF" {
		t.Fatalf("unexpected audio: %v", in.Speech.SynthesizedSpeech.Data)
	}

	in, err = Decode([]byte(`{"type":"speech","phraseId":"7","synthesizedSpeech":{"data":"UklGRg=="}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(in.Speech.SynthesizedSpeech.Data) != "RIFF" {
		t.Fatalf("unexpected base64 audio: %v", in.Speech.SynthesizedSpeech.Data)
	}

	in, err = Decode([]byte(`{"type":"speech","phraseId":"7"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(in.Speech.SynthesizedSpeech.Data) != 0 {
		t.Fatalf("expected empty audio")
	}
}

func TestDecodeSpeechRejectsOutOfRangeBytes(t *testing.T) {
	t.Parallel()

	if _, err := Decode([]byte(`{"type":"speech","synthesizedSpeech":{"data":[1,256]}}`)); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestDecodeStatusEndAndError(t *testing.T) {
	t.Parallel()

	in, err := Decode([]byte(`{"type":"status","success":false,"message":"bad code"}`))
	if err != nil || in.Status == nil || in.Status.Success || in.Status.Message != "bad code" {
		t.Fatalf("unexpected status: %+v err=%v", in.Status, err)
	}

	in, err = Decode([]byte(`{"type":"end"}`))
	if err != nil || in.End == nil || in.End.Message != "" {
		t.Fatalf("unexpected end: %+v err=%v", in.End, err)
	}

	in, err = Decode([]byte(`{"type":"error","message":"boom"}`))
	if err != nil || in.Error == nil || in.Error.Message != "boom" {
		t.Fatalf("unexpected error message: %+v err=%v", in.Error, err)
	}
}

func TestDecodeUnknownAndInvalid(t *testing.T) {
	t.Parallel()

	in, err := Decode([]byte(`{"type":"users","count":3}`))
	if err != nil || in.Type != TypeUsers {
		t.Fatalf("unexpected users decode: %+v err=%v", in, err)
	}

	in, err = Decode([]byte(`{"type":"mystery"}`))
	if err != nil || in.Type != "mystery" || in.Phrase != nil {
		t.Fatalf("unexpected unknown decode: %+v err=%v", in, err)
	}

	if _, err := Decode([]byte(`{"success":true}`)); !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected json error")
	}
}
