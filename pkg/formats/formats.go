// Package formats converts 3D model files into scene graphs.
//
// Wavefront OBJ with optional MTL materials is the only supported format;
// decoding is delegated to the g3n OBJ loader.
package formats
