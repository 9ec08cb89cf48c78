package engine

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// --- on-disk TMX schema (spec §6 "TMX map format") ---

type tmxMap struct {
	XMLName     xml.Name      `xml:"map"`
	Width       int           `xml:"width,attr"`
	Height      int           `xml:"height,attr"`
	TileWidth   int           `xml:"tilewidth,attr"`
	TileHeight  int           `xml:"tileheight,attr"`
	Orientation string        `xml:"orientation,attr"`
	Properties  *tmxPropSet   `xml:"properties"`
	Tilesets    []tmxTileset  `xml:"tileset"`
	Layers      []tmxLayer    `xml:"layer"`
	ImageLayers []tmxImgLayer `xml:"imagelayer"`
	ObjectGrps  []tmxObjGroup `xml:"objectgroup"`
}

type tmxPropSet struct {
	Properties []tmxProperty `xml:"property"`
}

type tmxProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (p *tmxPropSet) toMap() map[string]string {
	out := make(map[string]string)
	if p == nil {
		return out
	}
	for _, prop := range p.Properties {
		out[prop.Name] = prop.Value
	}
	return out
}

func propsFromMap(m map[string]string) *tmxPropSet {
	if len(m) == 0 {
		return nil
	}
	set := &tmxPropSet{}
	for k, v := range m {
		set.Properties = append(set.Properties, tmxProperty{Name: k, Value: v})
	}
	return set
}

type tmxTileset struct {
	FirstGID   int          `xml:"firstgid,attr"`
	Name       string       `xml:"name,attr"`
	TileWidth  int          `xml:"tilewidth,attr"`
	TileHeight int          `xml:"tileheight,attr"`
	Properties *tmxPropSet  `xml:"properties"`
	Image      *tmxImage    `xml:"image"`
	Tiles      []tmxTileDef `xml:"tile"`
}

type tmxImage struct {
	Source        string `xml:"source,attr"`
	Transparent   string `xml:"trans,attr"`
}

type tmxTileDef struct {
	ID         int         `xml:"id,attr"`
	Properties *tmxPropSet `xml:"properties"`
}

type tmxLayer struct {
	Name       string      `xml:"name,attr"`
	Width      int         `xml:"width,attr"`
	Height     int         `xml:"height,attr"`
	Opacity    string      `xml:"opacity,attr"`
	Visible    string      `xml:"visible,attr"`
	Properties *tmxPropSet `xml:"properties"`
	Data       tmxData     `xml:"data"`
}

type tmxData struct {
	Encoding    string `xml:"encoding,attr"`
	Compression string `xml:"compression,attr"`
	Text        string `xml:",chardata"`
}

type tmxImgLayer struct {
	Name       string      `xml:"name,attr"`
	Opacity    string      `xml:"opacity,attr"`
	Visible    string      `xml:"visible,attr"`
	Properties *tmxPropSet `xml:"properties"`
	Image      *tmxImage   `xml:"image"`
}

type tmxObjGroup struct {
	Name       string      `xml:"name,attr"`
	TintColor  string      `xml:"tintcolor,attr"`
	Opacity    string      `xml:"opacity,attr"`
	Visible    string      `xml:"visible,attr"`
	Properties *tmxPropSet `xml:"properties"`
	Objects    []tmxObject `xml:"object"`
}

type tmxObject struct {
	ID         int         `xml:"id,attr"`
	Name       string      `xml:"name,attr"`
	Type       string      `xml:"type,attr"`
	X          float64     `xml:"x,attr"`
	Y          float64     `xml:"y,attr"`
	Width      float64     `xml:"width,attr"`
	Height     float64     `xml:"height,attr"`
	GID        uint32      `xml:"gid,attr"`
	Visible    string      `xml:"visible,attr"`
	Ellipse    *struct{}   `xml:"ellipse"`
	Properties *tmxPropSet `xml:"properties"`
}

// --- loading ---

// LoadTMX decodes a TMX document's bytes into a Map. Tile layer data must
// be base64-encoded, either zlib-compressed or uncompressed (spec §6); any
// other encoding or compression is reported as ErrFormatParse, matching the original's narrow writer
// support rather than trying to read every Tiled export variant.
func LoadTMX(data []byte) (*Map, error) {
	var doc tmxMap
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatParse, err)
	}
	if doc.Orientation != "" && doc.Orientation != "orthogonal" {
		return nil, fmt.Errorf("%w: unsupported orientation %q", ErrFormatParse, doc.Orientation)
	}

	m := NewMap(doc.Width, doc.Height, doc.TileWidth, doc.TileHeight)
	m.Properties = doc.Properties.toMap()

	for _, ts := range doc.Tilesets {
		tileset := &Tileset{
			FirstID:    ts.FirstGID,
			Name:       ts.Name,
			TileWidth:  orInt(ts.TileWidth, doc.TileWidth),
			TileHeight: orInt(ts.TileHeight, doc.TileHeight),
			Properties: ts.Properties.toMap(),
		}
		if ts.Image != nil {
			tileset.ImageSource = ts.Image.Source
			if ts.Image.Transparent != "" {
				c, err := ParseHexColor(ts.Image.Transparent)
				if err == nil {
					tileset.ImageTransparentColor = c
				}
			}
		}
		for _, td := range ts.Tiles {
			tileset.Tiles = append(tileset.Tiles, TilesetTile{ID: td.ID, Properties: td.Properties.toMap()})
		}
		m.Tilesets = append(m.Tilesets, tileset)
		if strings.EqualFold(tileset.Name, "collision") || tileset.Properties["collision"] == "true" {
			m.CollisionTileset = tileset
		}
	}

	for _, tl := range doc.Layers {
		tiles, err := decodeTileData(tl.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %q: %v", ErrFormatParse, tl.Name, err)
		}
		layer := &TileLayer{
			Layer: Layer{
				Name:       tl.Name,
				Width:      orInt(tl.Width, doc.Width),
				Height:     orInt(tl.Height, doc.Height),
				Opacity:    orFloat(tl.Opacity, 1),
				Visible:    tl.Visible != "0",
				Properties: tl.Properties.toMap(),
			},
			Tiles: tiles,
		}
		m.Layers = append(m.Layers, layer)
		if strings.EqualFold(layer.Name, "collision") || layer.Properties["collision"] == "true" {
			m.CollisionLayer = layer
		}
	}

	for _, il := range doc.ImageLayers {
		layer := &ImageLayer{
			Layer: Layer{
				Name:       il.Name,
				Opacity:    orFloat(il.Opacity, 1),
				Visible:    il.Visible != "0",
				Properties: il.Properties.toMap(),
			},
		}
		if il.Image != nil {
			layer.ImageSource = il.Image.Source
			if il.Image.Transparent != "" {
				c, err := ParseHexColor(il.Image.Transparent)
				if err == nil {
					layer.ImageTransparentColor = c
				}
			}
		}
		layer.Repeat = layer.Properties["repeat"] == "true"
		layer.Fixed = layer.Properties["fixed"] == "true"
		m.Layers = append(m.Layers, layer)
	}

	for _, og := range doc.ObjectGrps {
		objLayer := &ObjectLayer{
			Layer: Layer{
				Name:       og.Name,
				Opacity:    orFloat(og.Opacity, 1),
				Visible:    og.Visible != "0",
				Properties: og.Properties.toMap(),
			},
		}
		if og.TintColor != "" {
			if c, err := ParseHexColor(og.TintColor); err == nil {
				objLayer.Color = c
			}
		}
		for _, to := range og.Objects {
			obj, err := buildMapObject(to)
			if err != nil {
				return nil, err
			}
			obj.UseLayerColor = objLayer.Color != (Color{})
			obj.Layer = objLayer
			objLayer.Objects = append(objLayer.Objects, obj)
			m.AddObject(obj)
		}
		m.ObjectLayers = append(m.ObjectLayers, objLayer)
		m.Layers = append(m.Layers, objLayer)
	}

	return m, nil
}

// buildMapObject converts one <object> element into a MapObject,
// validating that ellipse objects are circular (spec §4.5's
// collision-misconfig edge case).
func buildMapObject(to tmxObject) (*MapObject, error) {
	obj := &MapObject{
		ID:            to.ID,
		Name:          NormalizedName(to.Name),
		Type:          to.Type,
		Position:      Vec2{X: to.X, Y: to.Y},
		Size:          Vec2{X: to.Width, Y: to.Height},
		GID:           to.GID,
		Opacity:       1,
		Magnification: Vec2{X: 1, Y: 1},
		Visible:       to.Visible != "0",
		PlayerFacing:  true,
		Color:         ColorWhite,
		Properties:    to.Properties.toMap(),
	}
	if to.Ellipse != nil {
		if to.Width != to.Height {
			return nil, fmt.Errorf("%w: ellipse object %q is not circular (%gx%g)", ErrCollisionMisconfig, to.Name, to.Width, to.Height)
		}
		obj.BoundingCircle = &Circle{X: to.X + to.Width/2, Y: to.Y + to.Height/2, Radius: to.Width / 2}
	}
	applyObjectProperties(obj)
	return obj, nil
}

// applyObjectProperties maps the well-known custom properties (spec
// §4.11/§4.5) onto their typed MapObject fields, leaving everything else
// in Properties for scripts to read.
func applyObjectProperties(obj *MapObject) {
	p := obj.Properties
	if v, ok := p["passthrough"]; ok {
		obj.Passthrough = v == "true"
	}
	if v, ok := p["speed"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			obj.Speed = f
		}
	}
	if v, ok := p["facing"]; ok {
		dir, _ := ParseDirection(v)
		obj.Facing = dir
	}
	if v, ok := p["trigger"]; ok {
		obj.TriggerScript = ObjectScript{Source: v}
	}
	if v, ok := p["touch"]; ok {
		obj.TouchScript = ObjectScript{Source: v}
	}
	if v, ok := p["leave"]; ok {
		obj.LeaveScript = ObjectScript{Source: v}
	}
	if v, ok := p["player-facing"]; ok {
		obj.PlayerFacing = v == "true"
	}
	if v, ok := p["override-tile-collision"]; ok {
		obj.OverrideTileCollision = v == "true"
	}
}

// decodeTileData turns a <data> element's contents into a row-major GID
// slice. Whitespace around the base64 payload (Tiled pretty-prints it
// indented) is trimmed before decoding.
func decodeTileData(d tmxData) ([]uint32, error) {
	if d.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported layer data encoding %q", d.Encoding)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(d.Text))
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	switch d.Compression {
	case "zlib":
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("zlib decode: %w", err)
		}
		defer r.Close()
		raw, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("zlib decode: %w", err)
		}
	case "":
		// uncompressed base64
	default:
		return nil, fmt.Errorf("unsupported layer data compression %q", d.Compression)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("tile data length %d not a multiple of 4", len(raw))
	}
	tiles := make([]uint32, len(raw)/4)
	for i := range tiles {
		tiles[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return tiles, nil
}

func orInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func orFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}

// --- saving ---

// SaveTMX re-serializes m as a TMX document, producing the same layer
// order and bit-identical tile data as LoadTMX would read back (spec
// §4.13's load/save round-trip guarantee, for maps with no shader or
// uniform properties set).
func SaveTMX(m *Map) ([]byte, error) {
	doc := tmxMap{
		Width:       m.Width,
		Height:      m.Height,
		TileWidth:   m.TileWidth,
		TileHeight:  m.TileHeight,
		Orientation: "orthogonal",
		Properties:  propsFromMap(m.Properties),
	}
	for _, ts := range m.Tilesets {
		tileset := tmxTileset{
			FirstGID:   ts.FirstID,
			Name:       ts.Name,
			TileWidth:  ts.TileWidth,
			TileHeight: ts.TileHeight,
			Properties: propsFromMap(ts.Properties),
		}
		if ts.ImageSource != "" {
			tileset.Image = &tmxImage{Source: ts.ImageSource}
			if ts.ImageTransparentColor != (Color{}) {
				tileset.Image.Transparent = ts.ImageTransparentColor.Hex()
			}
		}
		for _, t := range ts.Tiles {
			if len(t.Properties) == 0 {
				continue
			}
			tileset.Tiles = append(tileset.Tiles, tmxTileDef{ID: t.ID, Properties: propsFromMap(t.Properties)})
		}
		doc.Tilesets = append(doc.Tilesets, tileset)
	}

	for _, l := range m.Layers {
		switch v := l.(type) {
		case *TileLayer:
			encoded, err := encodeTileData(v.Tiles)
			if err != nil {
				return nil, err
			}
			doc.Layers = append(doc.Layers, tmxLayer{
				Name:       v.Name,
				Width:      v.Width,
				Height:     v.Height,
				Opacity:    formatOpacity(v.Opacity),
				Visible:    formatVisible(v.Visible),
				Properties: propsFromMap(v.Properties),
				Data:       tmxData{Encoding: "base64", Compression: "zlib", Text: encoded},
			})
		case *ImageLayer:
			img := tmxImgLayer{
				Name:       v.Name,
				Opacity:    formatOpacity(v.Opacity),
				Visible:    formatVisible(v.Visible),
				Properties: propsFromMap(v.Properties),
			}
			if v.ImageSource != "" {
				img.Image = &tmxImage{Source: v.ImageSource}
			}
			doc.ImageLayers = append(doc.ImageLayers, img)
		case *ObjectLayer:
			grp := tmxObjGroup{
				Name:       v.Name,
				Opacity:    formatOpacity(v.Opacity),
				Visible:    formatVisible(v.Visible),
				Properties: propsFromMap(v.Properties),
			}
			if v.Color != (Color{}) {
				grp.TintColor = v.Color.Hex()
			}
			for _, obj := range v.Objects {
				grp.Objects = append(grp.Objects, objectToTMX(obj))
			}
			doc.ObjectGrps = append(doc.ObjectGrps, grp)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", " ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode tmx: %w", err)
	}
	return buf.Bytes(), nil
}

func objectToTMX(obj *MapObject) tmxObject {
	to := tmxObject{
		ID:         obj.ID,
		Name:       obj.Name,
		Type:       obj.Type,
		X:          obj.Position.X,
		Y:          obj.Position.Y,
		Width:      obj.Size.X,
		Height:     obj.Size.Y,
		GID:        obj.GID,
		Visible:    formatVisible(obj.Visible),
		Properties: propsFromMap(obj.Properties),
	}
	if obj.BoundingCircle != nil {
		to.Ellipse = &struct{}{}
	}
	return to
}

func formatOpacity(v float64) string {
	if v == 1 {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatVisible(v bool) string {
	if v {
		return ""
	}
	return "0"
}

// encodeTileData serializes tiles into the same base64+zlib form LoadTMX
// reads, so a load/save cycle round-trips byte-identically.
func encodeTileData(tiles []uint32) (string, error) {
	raw := make([]byte, len(tiles)*4)
	for i, gid := range tiles {
		binary.LittleEndian.PutUint32(raw[i*4:], gid)
	}
	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(raw); err != nil {
		return "", fmt.Errorf("zlib encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("zlib encode: %w", err)
	}
	return base64.StdEncoding.EncodeToString(compressed.Bytes()), nil
}
