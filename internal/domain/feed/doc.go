// Package feed models the Heureka 2.0 product feed document.
//
// A Shop is a list of ShopItems serialized as
//
//	<SHOP>
//	    <SHOPITEM>...</SHOPITEM>
//	</SHOP>
//
// with child elements in the order the schema prescribes. Free text is
// written as CDATA. Validator checks a serialized document against the
// structural and value constraints of the format.
package feed
