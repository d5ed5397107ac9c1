// Package sapi speaks prompts with the Windows SAPI5 engine through OLE automation.
package sapi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"simtrack/pkg/tts"
)

// SpFileStream open mode.
const ssfmCreateForWrite = 3

// Provider implements tts.Provider using Windows SAPI5 via OLE.
// Calls are serialized since COM objects are created per call on the calling thread.
type Provider struct {
	mu sync.Mutex
}

// NewProvider creates a new SAPI5 provider.
func NewProvider() *Provider {
	return &Provider{}
}

// withVoice initializes COM for the current thread and hands fn an SpVoice.
func (p *Provider) withVoice(fn func(voice *ole.IDispatch) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// S_FALSE means COM was already initialized on this thread.
	if err := ole.CoInitialize(0); err == nil {
		defer ole.CoUninitialize()
	}

	voice, err := createDispatch("SAPI.SpVoice")
	if err != nil {
		return err
	}
	defer voice.Release()

	return fn(voice)
}

func createDispatch(progID string) (*ole.IDispatch, error) {
	unknown, err := oleutil.CreateObject(progID)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", progID, err)
	}
	defer unknown.Release()

	disp, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", progID, err)
	}
	return disp, nil
}

// Synthesize renders text to a .wav file.
func (p *Provider) Synthesize(ctx context.Context, text, voiceID, outputPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !strings.HasSuffix(strings.ToLower(outputPath), ".wav") {
		outputPath += ".wav"
	}

	start := time.Now()
	err := p.withVoice(func(voice *ole.IDispatch) error {
		if voiceID != "" {
			selectVoice(voice, voiceID)
		}

		stream, err := createDispatch("SAPI.SpFileStream")
		if err != nil {
			return err
		}
		defer stream.Release()

		if _, err := oleutil.CallMethod(stream, "Open", outputPath, ssfmCreateForWrite, false); err != nil {
			return fmt.Errorf("open output stream: %w", err)
		}
		defer func() {
			_, _ = oleutil.CallMethod(stream, "Close")
		}()

		if _, err := oleutil.PutPropertyRef(voice, "AudioOutputStream", stream); err != nil {
			return fmt.Errorf("set AudioOutputStream: %w", err)
		}
		if _, err := oleutil.CallMethod(voice, "Speak", text, 0); err != nil {
			return fmt.Errorf("speak: %w", err)
		}
		return nil
	})
	tts.Log(tts.Entry{Engine: "SAPI", Voice: voiceID, Text: text, Took: time.Since(start), Err: err})
	if err != nil {
		return "", err
	}
	return "wav", nil
}

// Voices lists installed SAPI voices.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	var voices []tts.Voice
	err := p.withVoice(func(voice *ole.IDispatch) error {
		tokensVar, err := oleutil.CallMethod(voice, "GetVoices")
		if err != nil {
			return fmt.Errorf("get voices: %w", err)
		}
		tokens := tokensVar.ToIDispatch()
		if tokens == nil {
			return fmt.Errorf("voices collection is nil")
		}
		defer tokens.Release()

		return oleutil.ForEach(tokens, func(v *ole.VARIANT) error {
			if tok, ok := voiceFromToken(v); ok {
				voices = append(voices, tok)
			}
			return nil
		})
	})
	return voices, err
}

func voiceFromToken(v *ole.VARIANT) (tts.Voice, bool) {
	item := v.ToIDispatch()
	if item == nil {
		return tts.Voice{}, false
	}
	defer item.Release()

	idVar, err := oleutil.CallMethod(item, "GetId")
	if err != nil || idVar == nil {
		return tts.Voice{}, false
	}
	descVar, err := oleutil.CallMethod(item, "GetDescription", int32(0))
	if err != nil || descVar == nil {
		return tts.Voice{}, false
	}
	return tts.Voice{ID: idVar.ToString(), Name: descVar.ToString()}, true
}

func selectVoice(voice *ole.IDispatch, voiceID string) {
	tokensVar, err := oleutil.CallMethod(voice, "GetVoices", "", "")
	if err != nil {
		return
	}
	tokens := tokensVar.ToIDispatch()
	if tokens == nil {
		return
	}
	defer tokens.Release()

	_ = oleutil.ForEach(tokens, func(v *ole.VARIANT) error {
		item := v.ToIDispatch()
		if item == nil {
			return nil
		}
		defer item.Release()
		if idVar, _ := oleutil.CallMethod(item, "GetId"); idVar != nil && idVar.ToString() == voiceID {
			_, _ = oleutil.PutPropertyRef(voice, "Voice", item)
		}
		return nil
	})
}
