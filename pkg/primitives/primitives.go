// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package primitives binds the input-injection primitives to registrable
// skill definitions. This is the explicit bootstrap surface: each
// environment registers the set it needs, nothing self-registers.
package primitives

import (
	"context"
	"fmt"

	"github.com/jllopis/praxis/pkg/skills"
	"github.com/jllopis/praxis/pkg/target"
)

// Definitions returns the primitive skill set bound to the given injector.
// All primitives are basic-mode eligible.
func Definitions(injector target.Injector) []skills.Definition {
	return []skills.Definition{
		moveMouse(injector),
		clickAtPosition(injector),
		doubleClick(injector),
		typeText(injector),
		pressKey(injector),
		holdKey(injector),
		releaseKey(injector),
		scroll(injector),
	}
}

func moveMouse(injector target.Injector) skills.Definition {
	source := `move_mouse(x: float, y: float)
Moves the mouse cursor to normalized screen coordinates. Both coordinates
are in [0,1]; translation to window pixel space happens at the injection
boundary.`
	return skills.Definition{
		Name:        "move_mouse",
		Description: "Move the mouse cursor to normalized screen coordinates.",
		Parameters: []skills.ParamSpec{
			{Name: "x", Description: "Horizontal position in [0,1].", Type: "float", Required: true},
			{Name: "y", Description: "Vertical position in [0,1].", Type: "float", Required: true},
		},
		Basic:  true,
		Source: source,
		Invoke: func(ctx context.Context, params map[string]any) (any, error) {
			x, y, err := coords(params)
			if err != nil {
				return nil, err
			}
			return nil, injector.MoveTo(ctx, x, y)
		},
	}
}

func clickAtPosition(injector target.Injector) skills.Definition {
	source := `click_at_position(x: float, y: float, button: string = "left")
Moves to the normalized coordinates and clicks the given mouse button.`
	return skills.Definition{
		Name:        "click_at_position",
		Description: "Move to normalized coordinates and click a mouse button.",
		Parameters: []skills.ParamSpec{
			{Name: "x", Description: "Horizontal position in [0,1].", Type: "float", Required: true},
			{Name: "y", Description: "Vertical position in [0,1].", Type: "float", Required: true},
			{Name: "button", Description: "Mouse button.", Type: "string", Enum: []string{"left", "right", "middle"}, Default: "left"},
		},
		Basic:  true,
		Source: source,
		Invoke: func(ctx context.Context, params map[string]any) (any, error) {
			x, y, err := coords(params)
			if err != nil {
				return nil, err
			}
			if err := injector.MoveTo(ctx, x, y); err != nil {
				return nil, err
			}
			return nil, injector.Click(ctx, target.Button(params["button"].(string)))
		},
	}
}

func doubleClick(injector target.Injector) skills.Definition {
	source := `double_click(x: float, y: float)
Moves to the normalized coordinates and double-clicks the left button.`
	return skills.Definition{
		Name:        "double_click",
		Description: "Move to normalized coordinates and double-click the left button.",
		Parameters: []skills.ParamSpec{
			{Name: "x", Description: "Horizontal position in [0,1].", Type: "float", Required: true},
			{Name: "y", Description: "Vertical position in [0,1].", Type: "float", Required: true},
		},
		Basic:  true,
		Source: source,
		Invoke: func(ctx context.Context, params map[string]any) (any, error) {
			x, y, err := coords(params)
			if err != nil {
				return nil, err
			}
			if err := injector.MoveTo(ctx, x, y); err != nil {
				return nil, err
			}
			if err := injector.Click(ctx, target.ButtonLeft); err != nil {
				return nil, err
			}
			return nil, injector.Click(ctx, target.ButtonLeft)
		},
	}
}

func typeText(injector target.Injector) skills.Definition {
	source := `type_text(text: string)
Types the given text into the focused control.`
	return skills.Definition{
		Name:        "type_text",
		Description: "Type text into the focused control.",
		Parameters: []skills.ParamSpec{
			{Name: "text", Description: "Text to type.", Type: "string", Required: true},
		},
		Basic:  true,
		Source: source,
		Invoke: func(ctx context.Context, params map[string]any) (any, error) {
			return nil, injector.Type(ctx, params["text"].(string))
		},
	}
}

func pressKey(injector target.Injector) skills.Definition {
	source := `press_key(key: string)
Presses and immediately releases a key.`
	return skills.Definition{
		Name:        "press_key",
		Description: "Press and immediately release a key.",
		Parameters: []skills.ParamSpec{
			{Name: "key", Description: "Key name.", Type: "string", Required: true},
		},
		Basic:  true,
		Source: source,
		Invoke: func(ctx context.Context, params map[string]any) (any, error) {
			key := params["key"].(string)
			if err := injector.Hold(ctx, key); err != nil {
				return nil, err
			}
			return nil, injector.Release(ctx, key)
		},
	}
}

func holdKey(injector target.Injector) skills.Definition {
	source := `hold_key(key: string)
Holds a key down until release_key or until the hold expires.`
	return skills.Definition{
		Name:        "hold_key",
		Description: "Hold a key down until released or expired.",
		Parameters: []skills.ParamSpec{
			{Name: "key", Description: "Key name.", Type: "string", Required: true},
		},
		Basic:  true,
		Source: source,
		Invoke: func(ctx context.Context, params map[string]any) (any, error) {
			return nil, injector.Hold(ctx, params["key"].(string))
		},
	}
}

func releaseKey(injector target.Injector) skills.Definition {
	source := `release_key(key: string)
Releases a previously held key.`
	return skills.Definition{
		Name:        "release_key",
		Description: "Release a previously held key.",
		Parameters: []skills.ParamSpec{
			{Name: "key", Description: "Key name.", Type: "string", Required: true},
		},
		Basic:  true,
		Source: source,
		Invoke: func(ctx context.Context, params map[string]any) (any, error) {
			return nil, injector.Release(ctx, params["key"].(string))
		},
	}
}

func scroll(injector target.Injector) skills.Definition {
	source := `scroll(direction: string, amount: int = 3)
Scrolls the view up or down by the given number of notches.`
	return skills.Definition{
		Name:        "scroll",
		Description: "Scroll the view up or down.",
		Parameters: []skills.ParamSpec{
			{Name: "direction", Description: "Scroll direction.", Type: "string", Enum: []string{"up", "down"}, Required: true},
			{Name: "amount", Description: "Scroll notches.", Type: "int", Default: 3},
		},
		Basic:  true,
		Source: source,
		Invoke: func(ctx context.Context, params map[string]any) (any, error) {
			amount, _ := params["amount"].(int)
			return nil, injector.Scroll(ctx, target.Direction(params["direction"].(string)), amount)
		},
	}
}

func coords(params map[string]any) (float64, float64, error) {
	x, _ := params["x"].(float64)
	y, _ := params["y"].(float64)
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return 0, 0, fmt.Errorf("coordinates (%v,%v) outside [0,1]", x, y)
	}
	return x, y, nil
}
