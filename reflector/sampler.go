/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package reflector

import (
	"strings"

	"github.com/gogpu/naga/msl"
	"goarrg.com/debug"
)

var (
	samplerCoords = map[string]msl.SamplerCoord{
		"normalized": msl.SamplerCoordNormalized,
		"pixel":      msl.SamplerCoordPixel,
	}
	samplerAddresses = map[string]msl.SamplerAddress{
		"repeat":          msl.SamplerAddressRepeat,
		"mirrored_repeat": msl.SamplerAddressMirroredRepeat,
		"clamp_to_edge":   msl.SamplerAddressClampToEdge,
		"clamp_to_zero":   msl.SamplerAddressClampToZero,
		"clamp_to_border": msl.SamplerAddressClampToBorder,
	}
	samplerBorderColors = map[string]msl.SamplerBorderColor{
		"transparent_black": msl.SamplerBorderColorTransparentBlack,
		"opaque_black":      msl.SamplerBorderColorOpaqueBlack,
		"opaque_white":      msl.SamplerBorderColorOpaqueWhite,
	}
	samplerFilters = map[string]msl.SamplerFilter{
		"nearest": msl.SamplerFilterNearest,
		"linear":  msl.SamplerFilterLinear,
	}
	samplerCompareFuncs = map[string]msl.SamplerCompareFunc{
		"never":         msl.SamplerCompareFuncNever,
		"less":          msl.SamplerCompareFuncLess,
		"less_equal":    msl.SamplerCompareFuncLessEqual,
		"greater":       msl.SamplerCompareFuncGreater,
		"greater_equal": msl.SamplerCompareFuncGreaterEqual,
		"equal":         msl.SamplerCompareFuncEqual,
		"not_equal":     msl.SamplerCompareFuncNotEqual,
		"always":        msl.SamplerCompareFuncAlways,
	}
)

/*
SamplerState spells the constexpr state of a WGSL sampler with the keywords
of the Metal sampler constructor, empty fields keep Metal's defaults. Address
holds either one mode for every axis or one per axis. Filter sets MagFilter
and MinFilter unless those are given.
*/
type SamplerState struct {
	Coord       string
	Address     []string
	BorderColor string
	Filter      string
	MagFilter   string
	MinFilter   string
	MipFilter   string
	Compare     string
}

func keyword[T any](m map[string]T, kind, value string, def T) (T, error) {
	if value == "" {
		return def, nil
	}
	v, ok := m[value]
	if !ok {
		return def, debug.Errorf("Invalid sampler %s %q", kind, value)
	}
	return v, nil
}

// Inline converts s to the sampler description of the MSL backend.
func (s SamplerState) Inline() (msl.InlineSampler, error) {
	out := msl.InlineSampler{}
	var err error

	if out.Coord, err = keyword(samplerCoords, "coord", s.Coord, msl.SamplerCoordNormalized); err != nil {
		return out, err
	}
	switch len(s.Address) {
	case 0:
		out.Address = [3]msl.SamplerAddress{msl.SamplerAddressClampToEdge, msl.SamplerAddressClampToEdge, msl.SamplerAddressClampToEdge}
	case 1:
		a, err := keyword(samplerAddresses, "address", s.Address[0], msl.SamplerAddressClampToEdge)
		if err != nil {
			return out, err
		}
		out.Address = [3]msl.SamplerAddress{a, a, a}
	case 3:
		for i, v := range s.Address {
			if out.Address[i], err = keyword(samplerAddresses, "address", v, msl.SamplerAddressClampToEdge); err != nil {
				return out, err
			}
		}
	default:
		return out, debug.Errorf("Sampler address needs 1 or 3 modes, have %d", len(s.Address))
	}
	if out.BorderColor, err = keyword(samplerBorderColors, "border_color", s.BorderColor, msl.SamplerBorderColorTransparentBlack); err != nil {
		return out, err
	}

	filter, err := keyword(samplerFilters, "filter", s.Filter, msl.SamplerFilterNearest)
	if err != nil {
		return out, err
	}
	if out.MagFilter, err = keyword(samplerFilters, "mag_filter", s.MagFilter, filter); err != nil {
		return out, err
	}
	if out.MinFilter, err = keyword(samplerFilters, "min_filter", s.MinFilter, filter); err != nil {
		return out, err
	}
	if s.MipFilter != "" {
		mip, err := keyword(samplerFilters, "mip_filter", s.MipFilter, msl.SamplerFilterNearest)
		if err != nil {
			return out, err
		}
		out.MipFilter = &mip
	}
	if out.CompareFunc, err = keyword(samplerCompareFuncs, "compare", s.Compare, msl.SamplerCompareFuncNever); err != nil {
		return out, err
	}
	return out, nil
}

/*
ParseSamplerState parses the comma separated form used on the command line:

	filter=linear,address=clamp_to_edge,mip_filter=linear
	address=repeat:repeat:clamp_to_edge
*/
func ParseSamplerState(str string) (SamplerState, error) {
	s := SamplerState{}
	for _, kv := range strings.Split(str, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok || v == "" {
			return s, debug.Errorf("Sampler state %q not in the format \"key=value\"", kv)
		}
		switch k {
		case "coord":
			s.Coord = v
		case "address":
			s.Address = strings.Split(v, ":")
		case "border_color":
			s.BorderColor = v
		case "filter":
			s.Filter = v
		case "mag_filter":
			s.MagFilter = v
		case "min_filter":
			s.MinFilter = v
		case "mip_filter":
			s.MipFilter = v
		case "compare":
			s.Compare = v
		default:
			return s, debug.Errorf("Unknown sampler state %q", k)
		}
	}
	return s, nil
}
