/*
Package delivery implements the business hooks of the package-delivery dialog:
price quotes, shipment creation, tracking lookups and sender registration.

Amounts are kept as integer hundredths (cents of XAF, hundredths of a kilogram)
so quotes are exact and round half-up the same way every time.
*/
package delivery
