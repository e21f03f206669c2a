package main

/*
#include <stdbool.h>
#include <stdlib.h>
*/
import "C"

import "unsafe"

//export UplinkLoad
func UplinkLoad(configPath *C.char) (ok C.bool) {
	defer func() {
		if r := recover(); r != nil {
			current.recovered("UplinkLoad", r)
			ok = false
		}
	}()
	path := ""
	if configPath != nil {
		path = C.GoString(configPath)
	}
	return C.bool(current.load(path) == nil)
}

//export UplinkUnload
func UplinkUnload() {
	defer func() {
		if r := recover(); r != nil {
			current.recovered("UplinkUnload", r)
		}
	}()
	current.unload()
}

// UplinkGetReplyText returns a malloc'd string; release it with UplinkFreeString.
//
//export UplinkGetReplyText
func UplinkGetReplyText() (out *C.char) {
	defer func() {
		if r := recover(); r != nil {
			current.recovered("UplinkGetReplyText", r)
			out = C.CString("")
		}
	}()
	return C.CString(current.replyText())
}

// UplinkGetPhaseTag returns a malloc'd string; release it with UplinkFreeString.
//
//export UplinkGetPhaseTag
func UplinkGetPhaseTag() (out *C.char) {
	defer func() {
		if r := recover(); r != nil {
			current.recovered("UplinkGetPhaseTag", r)
			out = C.CString("IDLE")
		}
	}()
	return C.CString(current.phaseTag())
}

//export UplinkSetRecording
func UplinkSetRecording(on C.bool) (ok C.bool) {
	defer func() {
		if r := recover(); r != nil {
			current.recovered("UplinkSetRecording", r)
			ok = false
		}
	}()
	return C.bool(current.setRecording(bool(on)))
}

// UplinkGetEntityResponse returns a malloc'd string, empty while the reply is
// still being generated. Release it with UplinkFreeString.
//
//export UplinkGetEntityResponse
func UplinkGetEntityResponse(entity *C.char) (out *C.char) {
	defer func() {
		if r := recover(); r != nil {
			current.recovered("UplinkGetEntityResponse", r)
			out = C.CString("")
		}
	}()
	if entity == nil {
		return C.CString("")
	}
	return C.CString(current.entityResponse(C.GoString(entity)))
}

//export UplinkFreeString
func UplinkFreeString(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}
