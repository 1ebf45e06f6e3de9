package main

var banner = []string{
	"Welcome to the Solens Debug Interface",
	"-------------------------------------",
}
