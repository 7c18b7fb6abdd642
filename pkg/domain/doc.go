/*
Package domain contains the payload types shared by the relay, its
transports and its subscribers.

It is kept pure and free of external dependencies like I/O or
persistence: a Notice can be published over any transport and handed to
any subscriber without dragging adapter code along.

# Key Entities

  - Notice: The message relayed between processes and delivered to
    weakly held subscribers.
  - Level: The severity attached to a notice.
*/
package domain
